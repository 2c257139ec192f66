package extract

import (
	"strings"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/llm"
	"github.com/spherical/disclosure-extractor/internal/provenance"
)

type dedupKey struct {
	title, period, value string
}

// resolved is one value of a descriptor after Stage B.
type resolved struct {
	value    string
	period   string
	unit     string
	typ      domain.MetricType
	category domain.Category
}

type tableMatch struct {
	index, score int
}

// merge joins Stage B results back to their descriptors, drops invalid and
// duplicate values, and attaches provenance. Records keep descriptor order.
func (s *Service) merge(rc *RunContext, pending []pendingMetric, results []stageBResult) []domain.ExtractedRecord {
	source := rc.Document.Content

	var matcher *provenance.Matcher
	var tableIndex []int
	if s.opts.Match {
		var candidates []string
		for _, seg := range rc.Segments {
			if seg.Kind == domain.SegmentTable {
				candidates = append(candidates, seg.Content)
				tableIndex = append(tableIndex, seg.Index)
			}
		}
		if len(candidates) > 0 {
			matcher = provenance.NewMatcher(candidates)
		}
	}
	matches := make(map[string]tableMatch)

	records := []domain.ExtractedRecord{}
	for i, p := range pending {
		seen := make(map[dedupKey]bool)

		for _, r := range resolve(p.desc, results[i].out) {
			key := dedupKey{title: p.desc.Title, period: r.period, value: r.value}
			if seen[key] {
				continue
			}
			seen[key] = true

			rec := domain.ExtractedRecord{
				Index:     p.desc.Index,
				Title:     p.desc.Title,
				Value:     r.value,
				Unit:      r.unit,
				Period:    r.period,
				Type:      r.typ,
				Category:  r.category,
				Reference: p.desc.Reference,
			}

			if s.opts.Verify || matcher != nil {
				prov := &domain.Provenance{MatchedIndex: -1}
				if s.opts.Verify {
					prov.VerifiedPrefix = provenance.Verify(source, r.value)
					prov.Coverage = provenance.Coverage(source, r.value)
				}
				if matcher != nil && p.desc.Source == domain.SegmentTable {
					m, ok := matches[p.desc.Reference]
					if !ok {
						m = tableMatch{index: -1}
						if idx, score, found := matcher.Match(p.desc.Reference); found {
							m = tableMatch{index: tableIndex[idx], score: score}
						}
						matches[p.desc.Reference] = m
					}
					prov.MatchedIndex, prov.MatchScore = m.index, m.score
				}
				rec.Provenance = prov

				if s.opts.Verify && s.opts.MinCoverage > 0 && prov.Coverage < s.opts.MinCoverage {
					rc.logger.Debug().
						Str("title", rec.Title).
						Str("value", rec.Value).
						Float64("coverage", prov.Coverage).
						Msg("value not found in source, dropped")
					continue
				}
			}

			rc.CategoryCounts[rec.Category]++
			records = append(records, rec)
		}
	}
	return records
}

// resolve turns one Stage B output into candidate values for desc.
func resolve(desc domain.MetricDescriptor, out llm.Output) []resolved {
	switch out := out.(type) {
	case llm.CellListOutput:
		var vals []resolved
		for _, cell := range out.Data {
			value := domain.NormalizeValue(string(cell.Value))
			if !domain.ValidValue(value) {
				continue
			}
			vals = append(vals, resolved{
				value:    value,
				period:   strings.TrimSpace(cell.Period),
				unit:     desc.Unit,
				typ:      desc.Type,
				category: desc.Category,
			})
		}
		return vals

	case llm.ClassificationOutput:
		value := domain.NormalizeValue(desc.Value)
		if !domain.ValidValue(value) {
			return nil
		}
		unit := strings.TrimSpace(out.Unit)
		if unit == "" || strings.EqualFold(unit, "none") {
			unit = desc.Unit
		}
		return []resolved{{
			value:    value,
			period:   strings.TrimSpace(out.Period),
			unit:     unit,
			typ:      domain.ParseMetricType(out.Type),
			category: domain.ParseCategory(out.Category),
		}}
	}
	return nil
}
