package config

import (
	"os"
	"strconv"
	"sync"
)

// FeatureFlags manages runtime feature toggles. Flags gate optional
// behavior so a deployment can run without Redis, skip course funding,
// or turn off event delivery without code changes.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]bool
}

// Predefined feature flag names.
const (
	// FeatureVerificationCache caches certificate verification payloads
	// in Redis.
	FeatureVerificationCache = "cache.verification"

	// FeatureCourseCache serves course catalog reads through Redis.
	FeatureCourseCache = "cache.courses"

	// FeatureCourseFunding pays instructors a lump sum from the platform
	// account when a priced course is created.
	FeatureCourseFunding = "settlement.course_funding"

	// FeatureAsyncEvents runs event handlers on the worker pool instead
	// of inline.
	FeatureAsyncEvents = "events.async"

	// FeatureAuditTrail logs every domain event.
	FeatureAuditTrail = "events.audit_trail"
)

// defaultFlags are the flag values before environment overrides.
var defaultFlags = map[string]bool{
	FeatureVerificationCache: true,
	FeatureCourseCache:       true,
	FeatureCourseFunding:     true,
	FeatureAsyncEvents:       true,
	FeatureAuditTrail:        true,
}

// LoadFeatureFlags builds the flag set from defaults plus environment
// overrides of the form FEATURE_CACHE_VERIFICATION=false. Dots in flag
// names map to underscores in the variable name.
func LoadFeatureFlags() *FeatureFlags {
	f := &FeatureFlags{features: make(map[string]bool, len(defaultFlags))}
	for name, enabled := range defaultFlags {
		if val := os.Getenv(envName(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				enabled = b
			}
		}
		f.features[name] = enabled
	}
	return f
}

// Enabled reports whether a flag is on. Unknown flags are off.
func (f *FeatureFlags) Enabled(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.features[name]
}

// Set overrides a flag at runtime.
func (f *FeatureFlags) Set(name string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.features[name] = enabled
}

func envName(flag string) string {
	out := make([]byte, 0, len(flag)+8)
	out = append(out, "FEATURE_"...)
	for i := 0; i < len(flag); i++ {
		c := flag[i]
		switch {
		case c == '.':
			out = append(out, '_')
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
