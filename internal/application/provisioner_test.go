package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stalebot/internal/application"
	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

func TestProvisioner_CreatesEveryLabel(t *testing.T) {
	tracker := newFakeTracker()
	p := application.NewProvisioner(model.DefaultLabelCatalog(), nil, discardLogger())
	other := model.RepoRef{Owner: "octo", Name: "gadgets"}

	require.NoError(t, p.ProvisionRepos(context.Background(), tracker, []model.RepoRef{testRepo, other}))

	assert.Len(t, tracker.callsFor("create"), 12)
	assert.Len(t, tracker.repoLabels, 12)
}

func TestProvisioner_IgnoresExistingLabels(t *testing.T) {
	ctx := context.Background()
	tracker := newFakeTracker()
	p := application.NewProvisioner(model.DefaultLabelCatalog(), nil, discardLogger())

	require.NoError(t, p.ProvisionRepos(ctx, tracker, []model.RepoRef{testRepo}))
	require.NoError(t, p.ProvisionRepos(ctx, tracker, []model.RepoRef{testRepo}))

	assert.Len(t, tracker.repoLabels, 6)
}

func TestProvisioner_AttemptsAllBeforeReporting(t *testing.T) {
	tracker := newFakeTracker()
	tracker.createErr[model.LabelStatusDire] = errBoom
	p := application.NewProvisioner(model.DefaultLabelCatalog(), nil, discardLogger())
	other := model.RepoRef{Owner: "octo", Name: "gadgets"}

	err := p.ProvisionRepos(context.Background(), tracker, []model.RepoRef{testRepo, other})

	require.ErrorIs(t, err, errBoom)
	assert.Len(t, tracker.callsFor("create"), 12)
	assert.Len(t, tracker.repoLabels, 10)
}
