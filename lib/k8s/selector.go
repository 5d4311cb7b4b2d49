// Package k8s holds small helpers for filtering Kubernetes resources by
// namespace and labels.
package k8s

import (
	"sort"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NamespaceMatcher filters resources by namespace and label set. The zero
// value matches everything.
type NamespaceMatcher struct {
	// Namespace to match. Empty matches all namespaces.
	Namespace string `json:"namespace,omitempty"`

	// Labels that must all be present with these values.
	Labels map[string]string `json:"labels,omitempty"`
}

// LabelSelector renders the label set as a selector string for ListOptions.
// Keys are sorted so the same matcher always renders the same selector.
func (T *NamespaceMatcher) LabelSelector() string {
	if len(T.Labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(T.Labels))
	for key := range T.Labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+T.Labels[key])
	}
	return strings.Join(parts, ",")
}

// TweakListOptions merges the matcher's label selector into opts. Usable
// with informer factories and direct list calls.
func (T *NamespaceMatcher) TweakListOptions(opts *metav1.ListOptions) {
	if len(T.Labels) == 0 {
		return
	}
	selector := T.LabelSelector()
	if opts.LabelSelector != "" {
		opts.LabelSelector = opts.LabelSelector + "," + selector
		return
	}
	opts.LabelSelector = selector
}

// MatchesNamespace reports whether namespace passes the namespace filter.
func (T *NamespaceMatcher) MatchesNamespace(namespace string) bool {
	return T.Namespace == "" || T.Namespace == namespace
}

// MatchesLabels reports whether labels carries every required label.
func (T *NamespaceMatcher) MatchesLabels(labels map[string]string) bool {
	for key, value := range T.Labels {
		if labels[key] != value {
			return false
		}
	}
	return true
}
