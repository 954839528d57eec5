package courts

import (
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/utof/debtds/internal/core/domain"
)

// Event type names that carry a decision.
const (
	eventDecision          = "Решение"
	eventDecisions         = "Решения"
	eventDecisionsAndRules = "Решения и постановления"
	decisionContentMarker  = "решени"
)

// DateLayout is the dd.mm.yyyy format of event dates.
const DateLayout = "02.01.2006"

// party is one side of a lookup: the INN and every name it is known by.
type party struct {
	inn   string
	names mapset.Set[string]
}

func newParty(inn string, names []string) party {
	return party{inn: inn, names: mapset.NewThreadUnsafeSet(names...)}
}

func (p party) matches(inn, name string) bool {
	if p.inn != "" && strings.TrimSpace(inn) == p.inn {
		return true
	}
	return name != "" && p.names.Contains(name)
}

func anyParty[T any](list []T, p party, fields func(T) (string, string)) bool {
	return slices.ContainsFunc(list, func(v T) bool {
		inn, name := fields(v)
		return p.matches(inn, name)
	})
}

func hitParty(v domain.Party) (string, string)        { return v.INN.String(), v.Name }
func detailParty(v domain.Participant) (string, string) { return v.INN.String(), v.Name }

// namesFrom collects plaintiff names carrying the creditor INN and respondent
// names carrying the debtor INN.
func namesFrom(hits []domain.SearchHit, debtor, creditor string) domain.Names {
	var names domain.Names
	for _, hit := range hits {
		for _, p := range hit.Plaintiffs {
			if strings.TrimSpace(p.INN.String()) == creditor && p.Name != "" {
				names.Creditor = append(names.Creditor, p.Name)
			}
		}
		for _, r := range hit.Respondents {
			if strings.TrimSpace(r.INN.String()) == debtor && r.Name != "" {
				names.Debtor = append(names.Debtor, r.Name)
			}
		}
	}
	return names
}

// acceptHit reports whether the creditor is among the plaintiffs and the
// debtor among the respondents of a search hit.
func acceptHit(hit domain.SearchHit, debtor, creditor party) bool {
	return hit.CaseID != "" &&
		anyParty(hit.Plaintiffs, creditor, hitParty) &&
		anyParty(hit.Respondents, debtor, hitParty)
}

// prefilterLegacy applies the role prefilter to the hits of a search stored
// by older tooling, which kept every hit, and returns the migrated state.
func prefilterLegacy(s domain.SearchState, debtor, creditor string) domain.SearchState {
	s.Names = s.Names.Merge(namesFrom(s.LegacyHits, debtor, creditor))
	d := newParty(debtor, s.Names.Debtor)
	c := newParty(creditor, s.Names.Creditor)

	ids := mapset.NewThreadUnsafeSet[string]()
	for _, hit := range s.LegacyHits {
		if acceptHit(hit, d, c) {
			ids.Add(hit.CaseID)
		}
	}
	s.CollectedIDs = ids.ToSlice()
	slices.Sort(s.CollectedIDs)
	s.LegacyHits = nil
	return s
}

// validRoles checks the detail record: creditor among plaintiffs, debtor
// among respondents or defendants.
func validRoles(detail *domain.CaseDetail, debtor, creditor party) bool {
	return anyParty(detail.Participants.Plaintiffs, creditor, detailParty) &&
		anyParty(detail.Participants.Accused(), debtor, detailParty)
}

// isDecision reports whether an event is a decision document.
func isDecision(ev domain.InstanceEvent) bool {
	switch ev.EventTypeName {
	case eventDecision, eventDecisions:
		return true
	case eventDecisionsAndRules:
		return slices.ContainsFunc(ev.ContentTypes, func(ct domain.FlexString) bool {
			return strings.Contains(strings.ToLower(ct.String()), decisionContentMarker)
		})
	}
	return false
}

// ExtractDocuments returns the decision documents of a case in event order.
func ExtractDocuments(detail *domain.CaseDetail) []domain.Document {
	var docs []domain.Document
	for _, inst := range detail.CaseInstances {
		for _, ev := range inst.InstanceEvents {
			if isDecision(ev) && ev.File != "" && ev.Date != "" {
				docs = append(docs, domain.Document{Date: ev.Date, File: ev.File})
			}
		}
	}
	return docs
}

// FormatDocuments sorts documents newest first and renders one
// "date: file" line each. Undated documents keep their order at the end.
func FormatDocuments(docs []domain.Document) string {
	if len(docs) == 0 {
		return domain.ResultNoDocuments
	}

	type dated struct {
		doc domain.Document
		t   time.Time
		ok  bool
	}
	items := make([]dated, len(docs))
	for i, d := range docs {
		t, err := time.Parse(DateLayout, strings.TrimSpace(d.Date))
		items[i] = dated{doc: d, t: t, ok: err == nil}
	}
	slices.SortStableFunc(items, func(a, b dated) int {
		switch {
		case a.ok && b.ok:
			return b.t.Compare(a.t)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.doc.Date + ": " + it.doc.File
	}
	return strings.Join(lines, "\n")
}
