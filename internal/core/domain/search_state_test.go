package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchState_UnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want SearchState
	}{
		{
			name: "legacy id list",
			raw:  `["B", "A", "B"]`,
			want: SearchState{CollectedIDs: []string{"A", "B"}, Complete: true, RawHits: 3},
		},
		{
			name: "legacy sentinel",
			raw:  `"Нет результатов, нужна ручная проверка"`,
			want: SearchState{Complete: true, Terminal: "Нет результатов, нужна ручная проверка"},
		},
		{
			name: "legacy raw responses",
			raw: `{"responses": [
				{"status": 200, "Result": [{"caseId": "c2"}, {"caseId": "c1"}]},
				{"status": 200, "Result": [{"caseId": "c2"}]}
			], "names": {"debtor": ["ООО Ромашка"], "creditor": []}}`,
			want: SearchState{
				Complete:   true,
				RawHits:    3,
				Names:      Names{Debtor: []string{"ООО Ромашка"}, Creditor: []string{}},
				LegacyHits: []SearchHit{{CaseID: "c2"}, {CaseID: "c1"}, {CaseID: "c2"}},
			},
		},
		{
			name: "partial",
			raw:  `{"collected_ids": ["x"], "last_page_fetched": 1, "total_pages": 3, "is_complete": false, "raw_hits": 1}`,
			want: SearchState{CollectedIDs: []string{"x"}, LastPage: 1, TotalPages: 3, RawHits: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SearchState
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchState_UnknownShape(t *testing.T) {
	var got SearchState
	err := json.Unmarshal([]byte(`42`), &got)
	assert.ErrorIs(t, err, ErrUnknownStateShape)
}

func TestSearchState_PartialPredicate(t *testing.T) {
	assert.True(t, PartialState([]string{"a"}, 1, 3).Partial())
	assert.False(t, CompleteState(nil).Partial())
	assert.Empty(t, CompleteState(nil).CollectedIDs)
}
