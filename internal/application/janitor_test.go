package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitorSweepClearsExpiredTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Alice", "alice@x.com", "Abcdef1")
	f.signup(t, "Bob", "bob@x.com", "Abcdef1")
	require.NoError(t, f.svc.ForgotPassword(ctx, "bob@x.com", RequestMeta{}))

	j := NewJanitor(f.repo, time.Hour, quietLogger())

	n, err := j.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	j.clock = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	bob, _ := f.repo.GetByEmail(ctx, "bob@x.com")
	assert.Nil(t, bob.ResetPasswordToken)
	require.NotNil(t, bob.VerificationToken)

	j.clock = func() time.Time { return time.Now().Add(25 * time.Hour) }
	n, err = j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	alice, _ := f.repo.GetByEmail(ctx, "alice@x.com")
	assert.Nil(t, alice.VerificationToken)
	assert.Nil(t, alice.VerificationTokenExpiresAt)
	assert.False(t, alice.IsVerified)
}

func TestJanitorStartStop(t *testing.T) {
	j := NewJanitor(newMemRepo(), 10*time.Millisecond, quietLogger())
	j.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	j.Stop()

	disabled := NewJanitor(newMemRepo(), 0, quietLogger())
	disabled.Start(context.Background())
	disabled.Stop()
}
