// Package alerts implements the rule evaluation engine and webhook delivery
// for estimatelens alerting. Rules are evaluated against the default-window
// dashboard after every refresh; webhooks are delivered to Teams, Slack or
// generic HTTP targets.
//
// A rule condition is "field operator value", for example
//
//	high_deviation_groups > 0
//	on_target_pct < 60
//	hours_per_point >= 8
//	trend == none
//
// Operators are > >= < <= == !=. Fields without a value in the current
// dashboard (hours_per_point with no estimates, on_target_pct with no
// classified groups) never fire.
package alerts
