package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleProviderFindsStatutes(t *testing.T) {
	p := NewRuleProvider()
	entities, err := p.ExtractSimple(context.Background(),
		"What is the punishment under Section 420 of the Indian Penal Code?")
	require.NoError(t, err)
	require.NotEmpty(t, entities)
	assert.Equal(t, EntityStatute, entities[0].Type)
	assert.Contains(t, entities[0].Text, "Section 420")
}

func TestRuleProviderFindsCaseNames(t *testing.T) {
	p := NewRuleProvider()
	entities, err := p.ExtractSimple(context.Background(),
		"How does Miranda v. Arizona apply to custodial interrogation?")
	require.NoError(t, err)

	var found bool
	for _, e := range entities {
		if e.Type == EntityCase {
			found = true
			assert.Contains(t, e.Text, "Miranda")
		}
	}
	assert.True(t, found, "expected a case entity")
}

func TestRuleProviderDeduplicates(t *testing.T) {
	p := NewRuleProvider()
	entities, err := p.ExtractSimple(context.Background(),
		"Compare Article 21 with article 21 in both readings.")
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestRuleProviderEmptyOnPlainText(t *testing.T) {
	p := NewRuleProvider()
	entities, err := p.ExtractSimple(context.Background(), "how do I renew my lease")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestParseEntityJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"plain array", `[{"text":"Section 420","type":"statute"}]`, 1, false},
		{"code fence", "```json\n[{\"text\":\"habeas corpus\",\"type\":\"concept\"}]\n```", 1, false},
		{"empty array", `[]`, 0, false},
		{"blank spans dropped", `[{"text":"  ","type":"concept"},{"text":"due process"}]`, 1, false},
		{"not json", `I found no entities.`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := parseEntityJSON(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entities, tt.want)
		})
	}
}

func TestParseEntityJSONDefaultsType(t *testing.T) {
	entities, err := parseEntityJSON(`[{"text":"negligence"}]`)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, EntityConcept, entities[0].Type)
}
