package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

func TestSelectStagesKeepsBuildOrder(t *testing.T) {
	stages, err := selectStages(nil)
	require.NoError(t, err)
	assert.Equal(t, buildOrder, stages)

	stages, err = selectStages([]string{"documents", "ontology", "documents"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ontology", "documents"}, stages)

	_, err = selectStages([]string{"everything"})
	assert.ErrorContains(t, err, `unknown stage "everything"`)
}

func TestModeFlagsDefaults(t *testing.T) {
	search := config.Default().Search
	search.Mode = "tc"
	search.Similarity = "custom"
	search.BodySource = "anchor"

	mode, sim, sel, err := (&modeFlags{}).withDefaults(search).parse()
	require.NoError(t, err)
	assert.Equal(t, retrieval.TypeCentric, mode)
	assert.Equal(t, retrieval.Custom, sim)
	assert.Equal(t, corpus.Selection("anchor"), sel)

	mode, _, sel, err = (&modeFlags{mode: "EC", source: "all"}).withDefaults(search).parse()
	require.NoError(t, err)
	assert.Equal(t, retrieval.EntityCentric, mode)
	assert.Equal(t, corpus.SelectAll, sel)

	_, _, _, err = (&modeFlags{mode: "XC"}).withDefaults(search).parse()
	assert.ErrorIs(t, err, apperrors.ErrUnknownMode)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "index", "retrieve", "evaluate", "serve"} {
		assert.True(t, names[want], want)
	}
}
