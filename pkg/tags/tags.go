// Package tags derives the discrete filter tags stored on a video from its
// recipe attributes. The output only depends on the input values, so it is
// safe to recompute at creation time and from the backfill migration.
package tags

import (
	"fmt"
	"sort"
	"strings"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
)

type bucket struct {
	max   float64
	label string
}

var (
	budgetBuckets = []bucket{{10, "0-10"}, {25, "10-25"}, {50, "25-50"}, {100, "50-100"}}
	budgetTop     = "100+"

	calorieBuckets = []bucket{{300, "0-300"}, {600, "300-600"}, {1000, "600-1000"}, {1500, "1000-1500"}}
	calorieTop     = "1500+"

	prepBuckets = []bucket{{15, "0-15"}, {30, "15-30"}, {60, "30-60"}, {120, "60-120"}}
	prepTop     = "120+"
)

// Attributes 为空指针表示该属性未填写, 不生成对应的桶标签
type Attributes struct {
	Budget          *float64
	Calories        *float64
	PrepTimeMinutes *float64
	Spiciness       int
	Hashtags        []string
}

func bucketOf(v float64, buckets []bucket, top string) string {
	for _, b := range buckets {
		if v <= b.max {
			return b.label
		}
	}
	return top
}

// Generate returns the sorted tag set for a.
func Generate(a Attributes) []string {
	out := make([]string, 0, 4+constants.MaxHashtags)
	if a.Budget != nil {
		out = append(out, "budget_"+bucketOf(*a.Budget, budgetBuckets, budgetTop))
	}
	if a.Calories != nil {
		out = append(out, "calories_"+bucketOf(*a.Calories, calorieBuckets, calorieTop))
	}
	if a.PrepTimeMinutes != nil {
		out = append(out, "prep_"+bucketOf(*a.PrepTimeMinutes, prepBuckets, prepTop))
	}
	// 0 表示不辣, 不打标签
	if a.Spiciness > 0 {
		out = append(out, fmt.Sprintf("spicy_%d", a.Spiciness))
	}
	for _, h := range NormalizeHashtags(a.Hashtags) {
		out = append(out, "tag_"+h)
	}
	sort.Strings(out)
	return out
}

// NormalizeHashtags lower-cases, de-duplicates and sorts hashtags, then keeps
// at most constants.MaxHashtags of them.
func NormalizeHashtags(hashtags []string) []string {
	seen := make(map[string]struct{}, len(hashtags))
	out := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "#"))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Strings(out)
	if len(out) > constants.MaxHashtags {
		out = out[:constants.MaxHashtags]
	}
	return out
}

// Equal reports whether two tag lists hold the same set.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, t := range a {
		set[t]++
	}
	for _, t := range b {
		if set[t] == 0 {
			return false
		}
		set[t]--
	}
	return true
}

// ForVideo returns the tag set derived from v's recipe attributes.
func ForVideo(v *model.Video) []string {
	return Generate(Attributes{
		Budget:          v.Budget,
		Calories:        v.Calories,
		PrepTimeMinutes: v.PrepTimeMinutes,
		Spiciness:       v.Spiciness,
		Hashtags:        v.Hashtags,
	})
}
