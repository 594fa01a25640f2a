package risk

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/clawscan/clawscan/internal/report"
)

// bonusVars are the boolean facts derived from a scan's rule-ID set that
// the combination-bonus expressions are evaluated against. Grouped
// booleans (exec, promptInjection, credAccess, envAccess, webhook,
// network, obfuscation) are computed here exactly as spec.md §4.9 defines
// them; the atomic single-rule booleans pass straight through from
// whether that rule ID appears anywhere in the finding set.
var bonusVars = []string{
	"credAccess", "webhook", "blocklistedDomain", "blocklistedIP",
	"reverseShell", "downloadExecute", "promptInjection", "dataExfilPrompt",
	"hiddenCommands", "invisibleChars", "privEscalation", "fakePrerequisites",
	"externalUrls", "hiddenComment", "obfuscation", "exec", "envAccess",
	"network", "cronPersistence", "base64Exec",
}

// compiledBonus pairs a compiled CEL boolean expression with the points it
// contributes to Stage B when true.
type compiledBonus struct {
	points  int
	program cel.Program
}

// bonusTable lists every combination-bonus condition from spec.md §4.9 as
// a CEL boolean expression over bonusVars, alongside its point value. Rows
// are independently additive, per spec.md.
var bonusTable = []struct {
	expr   string
	points int
}{
	{`credAccess && (webhook || blocklistedDomain || blocklistedIP)`, 60},
	{`reverseShell`, 60},
	{`downloadExecute`, 50},
	{`promptInjection`, 50},
	{`dataExfilPrompt`, 50},
	{`hiddenCommands`, 50},
	{`invisibleChars`, 40},
	{`privEscalation`, 40},
	{`fakePrerequisites && externalUrls`, 40},
	{`fakePrerequisites && !externalUrls`, 25},
	{`hiddenComment`, 35},
	{`obfuscation && exec`, 35},
	{`webhook && envAccess`, 35},
	{`blocklistedDomain`, 30},
	{`blocklistedIP`, 30},
	{`cronPersistence`, 30},
	{`promptInjection && dataExfilPrompt`, 20},
	{`credAccess && network && !webhook && !blocklistedDomain`, 15},
	{`base64Exec && exec`, 15},
	{`obfuscation && !exec`, 10},
	{`webhook && !credAccess && !envAccess`, 10},
}

// bonusEvaluator holds the compiled Stage-B program set, built once and
// reused across scans (compile-once, evaluate-many, per the teacher's
// policy.CELEvaluator idiom).
type bonusEvaluator struct {
	programs []compiledBonus
}

var (
	sharedEvaluatorOnce sync.Once
	sharedEvaluator     *bonusEvaluator
	sharedEvaluatorErr  error
)

// newBonusEvaluator returns the process-wide evaluator, compiling the
// bonus table on first use.
func newBonusEvaluator() (*bonusEvaluator, error) {
	sharedEvaluatorOnce.Do(func() {
		sharedEvaluator, sharedEvaluatorErr = compileBonusEvaluator()
	})
	return sharedEvaluator, sharedEvaluatorErr
}

func compileBonusEvaluator() (*bonusEvaluator, error) {
	opts := make([]cel.EnvOption, 0, len(bonusVars))
	for _, v := range bonusVars {
		opts = append(opts, cel.Variable(v, cel.BoolType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs := make([]compiledBonus, 0, len(bonusTable))
	for _, row := range bonusTable {
		ast, issues := env.Compile(row.expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("CEL compile error in %q: %w", row.expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("CEL program creation failed for %q: %w", row.expr, err)
		}
		programs = append(programs, compiledBonus{points: row.points, program: prg})
	}

	return &bonusEvaluator{programs: programs}, nil
}

func (b *bonusEvaluator) evaluate(ruleset map[string]bool) (int, error) {
	vars := make(map[string]interface{}, len(bonusVars))
	vars["credAccess"] = ruleset["sshKeyAccess"] || ruleset["browserData"] || ruleset["apiKeyPatterns"]
	vars["webhook"] = ruleset["discordWebhook"] || ruleset["telegramBot"] || ruleset["slackWebhook"]
	vars["blocklistedDomain"] = ruleset["blocklistedDomain"]
	vars["blocklistedIP"] = ruleset["blocklistedIP"]
	vars["reverseShell"] = ruleset["reverseShell"]
	vars["downloadExecute"] = ruleset["downloadExecute"]
	vars["promptInjection"] = ruleset["promptInjection"] || ruleset["roleHijack"] || ruleset["instructionOverride"] ||
		ruleset["authoritySpoofing"] || ruleset["steganoInstructions"] || ruleset["conversationManip"]
	vars["dataExfilPrompt"] = ruleset["dataExfilPrompt"]
	vars["hiddenCommands"] = ruleset["hiddenCommands"]
	vars["invisibleChars"] = ruleset["invisibleChars"]
	vars["privEscalation"] = ruleset["privEscalation"]
	vars["fakePrerequisites"] = ruleset["fakePrerequisites"]
	vars["externalUrls"] = ruleset["externalUrls"]
	vars["hiddenComment"] = ruleset["hiddenComment"]
	vars["obfuscation"] = ruleset["jsObfuscator"] || ruleset["obfuscationTool"] || ruleset["longLine"]
	vars["exec"] = ruleset["evalExec"] || ruleset["shellExecution"]
	vars["envAccess"] = ruleset["envFileAccess"] || ruleset["clawbotPaths"]
	vars["network"] = ruleset["httpRequests"] || ruleset["rawSockets"]
	vars["cronPersistence"] = ruleset["cronPersistence"]
	vars["base64Exec"] = ruleset["base64Exec"]

	total := 0
	for _, cb := range b.programs {
		out, _, err := cb.program.Eval(vars)
		if err != nil {
			return 0, fmt.Errorf("CEL evaluation error: %w", err)
		}
		fired, ok := out.Value().(bool)
		if !ok {
			return 0, fmt.Errorf("CEL expression returned non-bool: %T", out.Value())
		}
		if fired {
			total += cb.points
		}
	}
	return total, nil
}

// deriveRuleset builds the ruleId -> present map that bonus evaluation
// keys off of. spec.md §4.9 is explicit that bonuses key off the *set* of
// rule IDs present, not counts.
func deriveRuleset(findings []report.Finding) map[string]bool {
	set := make(map[string]bool, len(findings))
	for _, f := range findings {
		set[f.RuleID] = true
	}
	return set
}
