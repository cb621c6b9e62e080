package curie

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Registry holds the namespace tables used for CURIE handling: per-namespace
// identifier patterns, canonical namespace spellings, and the mapping from
// trial-registry ID prefixes to namespaces.
//
// A Registry is immutable after construction and safe for concurrent use.
// Build one with NewRegistry and pass it to the components that need it.
type Registry struct {
	patterns map[string]*regexp.Regexp
	synonyms map[string]string
	prefixes []registryPrefix
}

type registryPrefix struct {
	prefix    string
	namespace string
}

// Identifier patterns per namespace, mirroring the upstream registry
// definitions for the sources we emit.
var namespacePatterns = map[string]string{
	"clinicaltrials":   `^NCT\d{8}$`,
	"mesh":             `^[CD]\d{6,9}$`,
	"doid":             `^\d+$`,
	"mondo":            `^\d{7}$`,
	"go":               `^\d{7}$`,
	"chebi":            `^\d+$`,
	"efo":              `^\d{7}$`,
	"debio":            `^\d{7}$`,
	"isrctn":           `^\d{8}$`,
	"anzctr":           `^ACTRN\d{14}$`,
	"drks":             `^DRKS\d{8}$`,
	"rebec":            `^RBR-[a-z0-9]+$`,
	"kcris":            `^KCT\d{7}$`,
	"pactr":            `^PACTR\d+$`,
	"tctr":             `^TCTR\d{11}$`,
	"rpcec":            `^RPCEC\d{8}$`,
	"euclinicaltrials": `^\d{4}-\d{6}-\d{2}$`,
	"ctis":             `^\d{4}-\d{6}-\d{2}-\d{2}$`,
	"jrct":             `^[a-zA-Z0-9]+$`,
	"uminctr":          `^UMIN\d{9}$`,
	"lctr":             `^LBCTR\d{10}$`,
	"itmctr":           `^ITMCTR\d+$`,
	"irct":             `^IRCT\d+N\d+$`,
	"ctri":             `^CTRI/\d{4}/\d{2,3}/\d{6}$`,
	"chictr":           `^ChiCTR-?[A-Z0-9-]+$`,
	"slctr":            `^SLCTR/\d{4}/\d+$`,
	"phrr":             `^PHRR\d+-\d+$`,
	"repec":            `^\d{3,4}-\d+$`,
	"ictrp":            `^NL\d+$`,
}

// Alternate spellings seen in registry exports, mapped to canonical namespaces.
var namespaceSynonyms = map[string]string{
	"MESH":               "mesh",
	"MeSH":               "mesh",
	"CHEBI":              "chebi",
	"DOID":               "doid",
	"MONDO":              "mondo",
	"GO":                 "go",
	"EFO":                "efo",
	"NCT":                "clinicaltrials",
	"ClinicalTrials.gov": "clinicaltrials",
	"EudraCT":            "euclinicaltrials",
}

// Trial-ID prefixes used by the WHO ICTRP export, mapped to namespaces.
// Matching is longest-prefix-first.
var trialIDPrefixes = map[string]string{
	"ClinicalTrials.gov": "clinicaltrials",
	"NCT":                "clinicaltrials",
	"ISRCTN":             "isrctn",
	"ACTRN":              "anzctr",
	"ANZCTR":             "anzctr",
	"DRKS":               "drks",
	"RBR":                "rebec",
	"CRIS":               "kcris",
	"KCT":                "kcris",
	"PACTR":              "pactr",
	"TCTR":               "tctr",
	"RPCEC":              "rpcec",
	"IFV":                "rpcec",
	"EUCTR":              "euclinicaltrials",
	"CTIS":               "ctis",
	"JPRN-jRCT":          "jrct",
	"jRCT":               "jrct",
	"JPRN-UMIN":          "uminctr",
	"LBCTR":              "lctr",
	"ITMCTR":             "itmctr",
	"IRCT":               "irct",
	"CTRI":               "ctri",
	"ChiCTR":             "chictr",
	"SLCTR":              "slctr",
	"PHRR":               "phrr",
	"NL":                 "ictrp",
	"PER":                "repec",
}

// NewRegistry compiles the built-in namespace tables into an immutable Registry.
func NewRegistry() (*Registry, error) {
	patterns := make(map[string]*regexp.Regexp, len(namespacePatterns))
	for ns, pattern := range namespacePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern for namespace %q: %w", ns, err)
		}
		patterns[ns] = re
	}

	prefixes := make([]registryPrefix, 0, len(trialIDPrefixes))
	for prefix, ns := range trialIDPrefixes {
		prefixes = append(prefixes, registryPrefix{prefix: prefix, namespace: ns})
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i].prefix) != len(prefixes[j].prefix) {
			return len(prefixes[i].prefix) > len(prefixes[j].prefix)
		}
		return prefixes[i].prefix < prefixes[j].prefix
	})

	return &Registry{
		patterns: patterns,
		synonyms: namespaceSynonyms,
		prefixes: prefixes,
	}, nil
}

// Known reports whether ns (in any recognized spelling) is a registered namespace.
func (r *Registry) Known(ns string) bool {
	_, ok := r.patterns[r.canonical(ns)]
	return ok
}

// Pattern returns the compiled identifier pattern for ns, if registered.
func (r *Registry) Pattern(ns string) (*regexp.Regexp, bool) {
	re, ok := r.patterns[r.canonical(ns)]
	return re, ok
}

// Standardize maps a (namespace, id) pair to its canonical form. Unknown
// namespaces are returned unchanged rather than failing, so callers can
// always proceed with the original pair.
func (r *Registry) Standardize(ns, id string) (string, string) {
	canonical := r.canonical(ns)
	if _, ok := r.patterns[canonical]; !ok {
		return ns, id
	}

	// Registry exports sometimes repeat the namespace inside the local id
	// (e.g. "DOID:0050117" under namespace doid).
	upper := strings.ToUpper(canonical) + ":"
	if strings.HasPrefix(strings.ToUpper(id), upper) {
		id = id[len(upper):]
	}

	return canonical, id
}

// RecognizeTrialID maps a raw registry trial ID to its namespace using the
// ID prefix tables. Returns false when no prefix matches.
func (r *Registry) RecognizeTrialID(trialID string) (string, bool) {
	for _, p := range r.prefixes {
		if strings.HasPrefix(trialID, p.prefix) || strings.HasPrefix(strings.ToLower(trialID), strings.ToLower(p.prefix)) {
			return p.namespace, true
		}
	}
	return "", false
}

func (r *Registry) canonical(ns string) string {
	if mapped, ok := r.synonyms[ns]; ok {
		return mapped
	}
	return strings.ToLower(ns)
}

// String formats a namespace and local id as a CURIE. The namespace is
// lowercased; the local id is kept as-is.
func String(ns, id string) string {
	return strings.ToLower(ns) + ":" + id
}

// Parse splits a CURIE on the first colon. The local id may itself
// contain colons.
func Parse(curie string) (string, string, error) {
	ns, id, found := strings.Cut(curie, ":")
	if !found || ns == "" {
		return "", "", fmt.Errorf("invalid curie %q: missing namespace separator", curie)
	}
	return ns, id, nil
}
