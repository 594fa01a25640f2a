package report

// Glossary:
//
//	Skill              a directory-packaged plug-in for an agent runtime,
//	                   entry-point declared by SKILL.md.
//	SKILL.md           top-level markdown manifest consumed as the skill's
//	                   system-prompt-like description.
//	Finding            a single flagged observation tied to a rule, file,
//	                   and line.
//	Rule               a named regex plus metadata (severity, description)
//	                   applied per line.
//	Blocklist          curated set of domains, IPs/CIDRs, and webhook URL
//	                   shapes known to be malicious.
//	Combination bonus  a score contribution activated only when a specific
//	                   subset of rule IDs co-occur in the same scan.
//	CLI-wrapper context heuristic classification of a skill as a legitimate
//	                   shell-tool front-end, which attenuates the linear
//	                   (Stage A) score.
//	Code-block sub-pipeline  recursive invocation of code analyzers on
//	                   scripts fenced inside SKILL.md, with source-line
//	                   rewriting.
