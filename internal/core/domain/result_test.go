package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_SingleFieldIsBareString(t *testing.T) {
	data, err := json.Marshal(SingleResult("01.03.2024: http://x/a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, `"01.03.2024: http://x/a.pdf"`, string(data))

	data, err = json.Marshal(Result{"100", "ООО Ромашка"})
	require.NoError(t, err)
	assert.Equal(t, `["100","ООО Ромашка"]`, string(data))
}

func TestResult_ReadsLegacyValues(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`"Документы с решениями не найдены"`), &r))
	assert.Equal(t, Result{"Документы с решениями не найдены"}, r)

	require.NoError(t, json.Unmarshal([]byte(`["A40-1/2024", 15000.5]`), &r))
	assert.Equal(t, Result{"A40-1/2024", "15000.5"}, r)

	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &r))
}

func TestResult_Field(t *testing.T) {
	r := FillResult(2, ResultRetry)
	assert.Equal(t, ResultRetry, r.Field(1))
	assert.Equal(t, "", r.Field(2))
}

func TestResult_MarshalLeavesAmpersands(t *testing.T) {
	data, err := SingleResult("01.03.2024: http://x/a.pdf?id=1&stamp=True").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"01.03.2024: http://x/a.pdf?id=1&stamp=True"`, string(data))

	data, err = Result{"a<b", "c&d"}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `["a<b","c&d"]`, string(data))
}
