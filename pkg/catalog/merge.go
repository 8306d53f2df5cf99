package catalog

import (
	"github.com/marmos91/stickerd/pkg/catalog/models"
	"github.com/marmos91/stickerd/pkg/vision"
)

// mergeResult folds an AI result into user-supplied image fields.
//
// This is the single merge rule for the whole pipeline: both the cache-hit
// path during ingest and the worker success path go through it, so the two
// can never drift apart.
//
// Rules:
//   - name: AI name wins when present, otherwise the user name stays
//   - category: AI category, else user category, else the default category
//   - tags: user tags then AI tags, deduplicated, first occurrence wins
//
// The function is pure; callers persist the returned image.
func mergeResult(img *models.Image, res *vision.Result) *models.Image {
	merged := *img

	if res.Name != "" {
		merged.Name = res.Name
	}

	switch {
	case res.Category != "":
		merged.Category = res.Category
	case img.Category != "":
		merged.Category = img.Category
	default:
		merged.Category = models.DefaultCategory
	}

	merged.Tags = mergeTags(img.Tags, res.Tags)
	return &merged
}

// mergeTags unions two tag lists preserving first-occurrence order.
func mergeTags(user, ai []string) []string {
	seen := make(map[string]struct{}, len(user)+len(ai))
	out := make([]string, 0, len(user)+len(ai))
	for _, tags := range [][]string{user, ai} {
		for _, t := range tags {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
