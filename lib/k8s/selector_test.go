package k8s

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestLabelSelector(t *testing.T) {
	cases := []struct {
		name     string
		labels   map[string]string
		expected string
	}{
		{"empty", nil, ""},
		{"single", map[string]string{"app": "regat"}, "app=regat"},
		{"sorted", map[string]string{"tier": "core", "app": "regat"}, "app=regat,tier=core"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			matcher := NamespaceMatcher{Labels: c.labels}
			if selector := matcher.LabelSelector(); selector != c.expected {
				t.Errorf("expected %q, got %q", c.expected, selector)
			}
		})
	}
}

func TestTweakListOptions(t *testing.T) {
	matcher := NamespaceMatcher{Labels: map[string]string{"app": "regat"}}

	var opts metav1.ListOptions
	matcher.TweakListOptions(&opts)
	if opts.LabelSelector != "app=regat" {
		t.Errorf("expected app=regat, got %q", opts.LabelSelector)
	}

	opts = metav1.ListOptions{LabelSelector: "tier=core"}
	matcher.TweakListOptions(&opts)
	if opts.LabelSelector != "tier=core,app=regat" {
		t.Errorf("expected merged selector, got %q", opts.LabelSelector)
	}

	empty := NamespaceMatcher{}
	opts = metav1.ListOptions{LabelSelector: "tier=core"}
	empty.TweakListOptions(&opts)
	if opts.LabelSelector != "tier=core" {
		t.Errorf("expected untouched selector, got %q", opts.LabelSelector)
	}
}

func TestMatchesNamespace(t *testing.T) {
	all := NamespaceMatcher{}
	if !all.MatchesNamespace("anything") {
		t.Error("empty matcher should match every namespace")
	}

	scoped := NamespaceMatcher{Namespace: "registry"}
	if !scoped.MatchesNamespace("registry") {
		t.Error("expected the configured namespace to match")
	}
	if scoped.MatchesNamespace("default") {
		t.Error("expected other namespaces to be rejected")
	}
}

func TestMatchesLabels(t *testing.T) {
	matcher := NamespaceMatcher{Labels: map[string]string{"app": "regat", "tier": "core"}}

	if !matcher.MatchesLabels(map[string]string{"app": "regat", "tier": "core", "extra": "x"}) {
		t.Error("expected a superset of the required labels to match")
	}
	if matcher.MatchesLabels(map[string]string{"app": "regat"}) {
		t.Error("expected a missing label to be rejected")
	}
	if matcher.MatchesLabels(map[string]string{"app": "other", "tier": "core"}) {
		t.Error("expected a mismatched value to be rejected")
	}

	empty := NamespaceMatcher{}
	if !empty.MatchesLabels(nil) {
		t.Error("empty matcher should match everything")
	}
}
