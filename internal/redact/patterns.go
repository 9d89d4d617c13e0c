package redact

import "regexp"

// Pattern recognizes one kind of credential. When the regex has a capture
// group only the group is replaced, so "api_key = ..." keeps its name.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	// MinEntropy gates generic patterns; 0 disables the check
	MinEntropy float64
}

// builtinPatterns cover provider tokens with a recognizable shape plus a few
// generic assignments that need an entropy check.
var builtinPatterns = []Pattern{
	{
		Name:  "aws_access_key_id",
		Regex: regexp.MustCompile(`(?:^|[^A-Z0-9])((?:A3T[A-Z0-9]|AKIA|ABIA|ACCA|AGPA|AIDA|AIPA|ANPA|ANVA|APKA|AROA|ASCA|ASIA)[A-Z0-9]{16})(?:[^A-Z0-9]|$)`),
	},
	{
		Name:       "aws_secret_key",
		Regex:      regexp.MustCompile(`(?i)(?:aws[_-]?)?secret[_-]?(?:access[_-]?)?key['":\s=]+['"]?([A-Za-z0-9/+=]{40})['"]?`),
		MinEntropy: 3.5,
	},
	{Name: "github_token", Regex: regexp.MustCompile(`(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36,}`)},
	{Name: "github_fine_grained", Regex: regexp.MustCompile(`github_pat_[A-Za-z0-9]{22}_[A-Za-z0-9]{59}`)},
	{Name: "stripe_key", Regex: regexp.MustCompile(`(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{24,}`)},
	{Name: "slack_token", Regex: regexp.MustCompile(`xox[bpa]-[0-9]{10,13}-[0-9A-Za-z-]{10,}`)},
	{Name: "slack_webhook", Regex: regexp.MustCompile(`https://hooks\.slack\.com/services/T[A-Z0-9]{8,}/B[A-Z0-9]{8,}/[A-Za-z0-9]{24}`)},
	{Name: "private_key", Regex: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`)},
	{
		Name:       "jwt",
		Regex:      regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`),
		MinEntropy: 3.0,
	},
	{Name: "google_api_key", Regex: regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`)},
	{Name: "npm_token", Regex: regexp.MustCompile(`npm_[A-Za-z0-9]{36}`)},
	{Name: "pypi_token", Regex: regexp.MustCompile(`pypi-[A-Za-z0-9_-]{100,}`)},
	{Name: "anthropic_api_key", Regex: regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{32,}`)},
	{Name: "openai_api_key", Regex: regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9]{32,}`)},
	{
		Name:       "generic_api_key",
		Regex:      regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)['":\s=]+['"]?([A-Za-z0-9_-]{20,64})['"]?`),
		MinEntropy: 3.5,
	},
	{
		Name:       "generic_secret",
		Regex:      regexp.MustCompile(`(?i)(?:secret|password|passwd|pwd|token)['":\s=]+['"]([A-Za-z0-9!@#$%^&*()_+\-=]{8,64})['"]`),
		MinEntropy: 3.0,
	},
	{
		Name:       "password_in_url",
		Regex:      regexp.MustCompile(`://[^:/\s]+:([^@/\s]{3,})@[^/\s]+`),
		MinEntropy: 2.5,
	},
	{
		Name:       "bearer_token",
		Regex:      regexp.MustCompile(`(?i)bearer\s+([A-Za-z0-9._-]{20,})`),
		MinEntropy: 3.0,
	},
}
