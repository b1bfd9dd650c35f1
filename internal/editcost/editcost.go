// Package editcost computes the cost and versioning decision for a
// post-generation edit from the prior and new field snapshots.
package editcost

import "sort"

// Decision is the outcome of evaluating one edit request.
type Decision struct {
	// ChangedKeys are the canonical keys whose values differ between the
	// snapshots, sorted. Missing-vs-present counts as changed.
	ChangedKeys []string `json:"changed_keys"`
	// FeeCents is the flat fee charged for this edit operation; zero while
	// within the free quota. The fee never scales with how many keys
	// exceed the quota.
	FeeCents int `json:"fee_cents"`
	// Fork is true when the edit produces a new document instance instead
	// of mutating in place.
	Fork bool `json:"fork"`
	// QuotaBefore is the free-change allowance remaining before this edit.
	QuotaBefore int `json:"quota_before"`
}

// ChangedKeys returns the canonical keys whose values differ between two
// snapshots, in sorted order.
func ChangedKeys(prior, next map[string]string) []string {
	changed := make(map[string]bool)
	for k, v := range prior {
		if nv, ok := next[k]; !ok || nv != v {
			changed[k] = true
		}
	}
	for k, v := range next {
		if pv, ok := prior[k]; !ok || pv != v {
			changed[k] = true
		}
	}

	keys := make([]string, 0, len(changed))
	for k := range changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Evaluate decides fee and versioning for an edit. quotaRemaining is the
// free-change allowance left this billing cycle for the document lineage;
// feeCents is the flat charge for a paid edit operation.
//
// Within quota the edit applies in place at no fee; over quota it charges
// the flat fee once and forks a new instance, leaving the original
// untouched.
func Evaluate(prior, next map[string]string, quotaRemaining, feeCents int) Decision {
	if quotaRemaining < 0 {
		quotaRemaining = 0
	}
	changed := ChangedKeys(prior, next)
	d := Decision{
		ChangedKeys: changed,
		QuotaBefore: quotaRemaining,
	}
	if len(changed) == 0 {
		return d
	}
	if len(changed) > quotaRemaining {
		d.FeeCents = feeCents
		d.Fork = true
	}
	return d
}
