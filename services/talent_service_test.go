package services

import (
	"testing"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTalentService_CreateProfile(t *testing.T) {
	m := newMarketplace(t)
	talent := NewTalentService(m.db)
	mason := testutil.CreateUser(t, m.db, "mason", models.RoleCustomer)

	rate := dec("850")
	profile, err := talent.CreateProfile(m.ctx, PrincipalFor(mason), TalentProfileInput{
		Headline:        "Stone mason, 12 years",
		Skills:          []string{" Masonry", "plastering", "masonry", ""},
		HourlyRate:      &rate,
		YearsExperience: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"masonry", "plastering"}, []string(profile.Skills))
	assert.True(t, rate.Equal(profile.HourlyRate.Decimal))

	var reloaded models.User
	require.NoError(t, m.db.First(&reloaded, mason.ID).Error)
	assert.Equal(t, models.RoleProfessional, reloaded.Role)

	_, err = talent.CreateProfile(m.ctx, PrincipalFor(mason), TalentProfileInput{Headline: "again"})
	assert.ErrorIs(t, err, ErrDuplicateProfile)

	_, err = talent.CreateProfile(m.ctx, m.buyer, TalentProfileInput{})
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = talent.CreateProfile(m.ctx, m.buyer, TalentProfileInput{Headline: "x", YearsExperience: -1})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTalentService_ListProfilesBySkill(t *testing.T) {
	m := newMarketplace(t)
	talent := NewTalentService(m.db)

	for name, skills := range map[string][]string{
		"electrician": {"Wiring", "solar"},
		"plumber":     {"pipework"},
	} {
		user := testutil.CreateUser(t, m.db, name, models.RoleCustomer)
		_, err := talent.CreateProfile(m.ctx, PrincipalFor(user), TalentProfileInput{Headline: name, Skills: skills})
		require.NoError(t, err)
	}

	all, err := talent.ListProfiles(m.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	wiring, err := talent.ListProfiles(m.ctx, "WIRING")
	require.NoError(t, err)
	require.Len(t, wiring, 1)
	require.NotNil(t, wiring[0].User)
	assert.Equal(t, "electrician", wiring[0].User.Name)
}

func TestTalentService_Invites(t *testing.T) {
	m := newMarketplace(t)
	talent := NewTalentService(m.db)
	projects := NewProjectService(m.db)

	carpenter := testutil.CreateUser(t, m.db, "carpenter", models.RoleCustomer)
	profile, err := talent.CreateProfile(m.ctx, PrincipalFor(carpenter), TalentProfileInput{Headline: "Roofing carpenter"})
	require.NoError(t, err)

	_, err = talent.SendInvite(m.ctx, m.seller, profile.ID, m.project.ID, "join us")
	assert.ErrorIs(t, err, ErrForbidden, "only the owner invites")
	_, err = talent.SendInvite(m.ctx, m.buyer, 9999, m.project.ID, "")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	invite, err := talent.SendInvite(m.ctx, m.buyer, profile.ID, m.project.ID, "Roof trusses next week")
	require.NoError(t, err)
	assert.Equal(t, models.InvitePending, invite.Status)

	_, err = talent.RespondInvite(m.ctx, m.buyer, invite.ID, models.InviteAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = talent.RespondInvite(m.ctx, PrincipalFor(carpenter), invite.ID, models.InvitePending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	accepted, err := talent.RespondInvite(m.ctx, PrincipalFor(carpenter), invite.ID, models.InviteAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.InviteAccepted, accepted.Status)

	_, err = talent.RespondInvite(m.ctx, PrincipalFor(carpenter), invite.ID, models.InviteRejected)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	project, err := projects.GetProject(m.ctx, PrincipalFor(carpenter), m.project.ID)
	require.NoError(t, err)
	assert.Len(t, project.Members, 1)
}
