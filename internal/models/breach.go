package models

// BreachResult represents a single breach record returned by the breach-check
// gateway. Results are produced per request and never persisted; the raw email
// is never part of this structure.
type BreachResult struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Domain      string   `json:"domain"`
	BreachDate  string   `json:"breachDate"`
	PwnCount    int64    `json:"pwnCount"`
	DataClasses []string `json:"dataClasses"`
	IsVerified  bool     `json:"isVerified"`
	IsSensitive bool     `json:"isSensitive"`
}
