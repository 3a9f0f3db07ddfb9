package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/config"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository/sqlite"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/passhash"
)

var fastHash = passhash.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recorder) Publish(_ string, ev models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) last() models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	svcs  *Services
	pub   *recorder
	clock *time.Time
}

func newFixture(t *testing.T, name string, verify bool) *fixture {
	t.Helper()
	repo, err := sqlite.New("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{pub: &recorder{}, clock: &now}
	f.svcs = NewServices(repo, config.Config{JWTSecret: "test", RequireVerification: verify},
		WithClock(func() time.Time { return *f.clock }),
		WithCodeGenerator(func() string { return "482913" }),
		WithPublisher(f.pub),
		WithHashParams(fastHash),
	)
	return f
}

var ctx = context.Background()

// register runs the whole sign-up and returns the issued tokens.
func (f *fixture) register(t *testing.T, email string) models.TokenResponse {
	t.Helper()
	r := f.svcs.Registration
	step, err := r.Start(ctx, PersonalInput{FullName: "Omar Haddad", Email: email, Phone: "+971501234567", Password: "s3cret-pass"})
	require.NoError(t, err)
	if step.RequiresVerification {
		step, err = r.Verify(ctx, VerifyInput{SessionID: step.SessionID, Code: "482913"})
		require.NoError(t, err)
	}
	step, err = r.Location(ctx, LocationInput{SessionID: step.SessionID, Address: "Street 18", City: "Dubai"})
	require.NoError(t, err)
	step, err = r.Complete(ctx, BusinessInput{SessionID: step.SessionID, GarageName: "Al Quoz Motors", TradeLicense: "TL-1"})
	require.NoError(t, err)
	require.NotNil(t, step.Tokens)
	return *step.Tokens
}

func TestRegistration_FullFlow(t *testing.T) {
	f := newFixture(t, "svc_registration", true)
	r := f.svcs.Registration

	step, err := r.Start(ctx, PersonalInput{FullName: "Omar", Email: " Omar@Garage.AE ", Phone: "+971501234567", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.True(t, step.RequiresVerification)
	assert.Equal(t, StepVerification, step.NextStep)
	assert.True(t, f.clock.Add(30*time.Minute).Equal(step.ExpiresAt))

	_, err = r.Location(ctx, LocationInput{SessionID: step.SessionID, Address: "a", City: "Dubai"})
	assert.ErrorIs(t, err, ErrStepOrder)

	_, err = r.Verify(ctx, VerifyInput{SessionID: step.SessionID, Code: "000000"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = r.Resend(ctx, SessionInput{SessionID: step.SessionID})
	require.NoError(t, err)
	step, err = r.Verify(ctx, VerifyInput{SessionID: step.SessionID, Code: "482913"})
	require.NoError(t, err)
	assert.Equal(t, StepLocation, step.NextStep)

	step, err = r.Location(ctx, LocationInput{SessionID: step.SessionID, Address: "Street 18", City: "Dubai", Area: "Al Quoz"})
	require.NoError(t, err)
	assert.Equal(t, StepBusiness, step.NextStep)

	step, err = r.Complete(ctx, BusinessInput{SessionID: step.SessionID, GarageName: "Al Quoz Motors", TradeLicense: "TL-1"})
	require.NoError(t, err)
	require.NotNil(t, step.Tokens)
	assert.Equal(t, "omar@garage.ae", step.Tokens.User.Email)

	profile, err := f.svcs.Documents.Profile(ctx, *step.Tokens.User)
	require.NoError(t, err)
	assert.Equal(t, "Al Quoz Motors", profile["garage_name"])
	assert.Equal(t, "Dubai", profile["city"])

	_, err = r.Start(ctx, PersonalInput{FullName: "Omar", Email: "omar@garage.ae", Phone: "+971501234567", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegistration_Expiry(t *testing.T) {
	f := newFixture(t, "svc_registration_expiry", false)
	r := f.svcs.Registration
	step, err := r.Start(ctx, PersonalInput{FullName: "Omar", Email: "late@garage.ae", Phone: "+971501234567", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, StepLocation, step.NextStep)

	*f.clock = f.clock.Add(31 * time.Minute)
	_, err = r.Location(ctx, LocationInput{SessionID: step.SessionID, Address: "a", City: "Dubai"})
	assert.ErrorIs(t, err, ErrRegistrationExpired)
	_, err = r.Location(ctx, LocationInput{SessionID: "unknown", Address: "a", City: "Dubai"})
	assert.ErrorIs(t, err, ErrRegistrationExpired)
}

func TestAuth_LoginRefreshLogout(t *testing.T) {
	f := newFixture(t, "svc_auth", false)
	f.register(t, "ops@garage.ae")
	a := f.svcs.Auth

	tokens, err := a.Login(ctx, "OPS@garage.ae", "s3cret-pass")
	require.NoError(t, err)
	uid, err := a.ParseToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, uid)

	rotated, err := a.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	_, err = a.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, a.Logout(ctx, rotated.RefreshToken))
	_, err = a.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	*f.clock = f.clock.Add(2 * time.Hour)
	_, err = a.ParseToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	bad := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uid})
	s, _ := bad.SignedString(jwt.UnsafeAllowNoneSignatureType)
	_, err = a.ParseToken(ctx, s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_LockoutAfterFailures(t *testing.T) {
	f := newFixture(t, "svc_lockout", false)
	f.register(t, "ops@garage.ae")
	a := f.svcs.Auth

	_, err := a.Login(ctx, "nobody@garage.ae", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	for i := 1; i < maxFailedLogins; i++ {
		_, err = a.Login(ctx, "ops@garage.ae", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}
	_, err = a.Login(ctx, "ops@garage.ae", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)
	_, err = a.Login(ctx, "ops@garage.ae", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAccountLocked)

	*f.clock = f.clock.Add(lockoutPeriod)
	_, err = a.Login(ctx, "ops@garage.ae", "s3cret-pass")
	assert.NoError(t, err)
}

func TestAuth_UnverifiedUser(t *testing.T) {
	repo, err := sqlite.New("file:svc_unverified?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	hash, err := fastHash.Hash("s3cret-pass")
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, repository.User{Email: "new@garage.ae", PasswordHash: []byte(hash)})
	require.NoError(t, err)

	svcs := NewServices(repo, config.Config{JWTSecret: "test"})
	_, err = svcs.Auth.Login(ctx, "new@garage.ae", "s3cret-pass")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestDocuments_CRUDPublishesChanges(t *testing.T) {
	f := newFixture(t, "svc_documents", false)
	d := f.svcs.Documents

	b, err := d.CreateBooking(ctx, "g1", map[string]any{"id": "forged", "customer_name": "Sara", "service_type": "Oil change", "estimated_cost": 250.0, "scheduled_at": "2026-03-01T14:00:00Z"})
	require.NoError(t, err)
	id := b["id"].(string)
	assert.NotEqual(t, "forged", id)
	assert.Equal(t, "pending", b["status"])

	n, err := d.UnreadCount(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = d.Update(ctx, "g1", Bookings, id, map[string]any{"status": "completed"})
	require.NoError(t, err)
	ev := f.pub.last()
	assert.Equal(t, models.ChangeEvent{Collection: Bookings, ResourceID: id, DocumentID: id, Op: models.ChangeUpdate, At: *f.clock}, ev)

	stats, err := d.BookingStats(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats["total"])
	assert.Equal(t, 1, stats["completed"])
	assert.Equal(t, 1, stats["today"])
	assert.Equal(t, 250.0, stats["revenue"])

	dash, err := d.Dashboard(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 250.0, dash["monthly_revenue"])
	assert.Equal(t, 1, dash["active_customers"])

	page, err := d.List(ctx, "g1", Bookings, ListQuery{Status: "completed", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, d.Delete(ctx, "g1", Bookings, id))
	assert.Equal(t, models.ChangeDelete, f.pub.last().Op)
	_, err = d.Get(ctx, "g1", Bookings, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocuments_ConversationMessages(t *testing.T) {
	f := newFixture(t, "svc_conversations", false)
	d := f.svcs.Documents

	conv, err := d.Create(ctx, "g1", Conversations, "", map[string]any{"customer_id": "c1", "customer_name": "Sara"})
	require.NoError(t, err)
	cid := conv["id"].(string)

	_, err = d.SendMessage(ctx, "g1", cid, map[string]any{"content": "Your car is ready"})
	require.NoError(t, err)
	msg, err := d.SendMessage(ctx, "g1", cid, map[string]any{"content": "Thanks!", "sender_role": "customer", "sender_id": "c1"})
	require.NoError(t, err)
	assert.Equal(t, cid, msg["conversation_id"])

	var sawMessage bool
	for _, ev := range f.pub.events {
		if ev.Collection == Messages && ev.ResourceID == cid && ev.DocumentID == msg["id"] {
			sawMessage = true
		}
	}
	assert.True(t, sawMessage)

	c, err := d.Get(ctx, "g1", Conversations, cid)
	require.NoError(t, err)
	assert.Equal(t, "Thanks!", c["last_message"])
	assert.Equal(t, 1.0, c["unread_count"])

	require.NoError(t, d.MarkConversationRead(ctx, "g1", cid))
	msgs, err := d.List(ctx, "g1", Messages, ListQuery{ParentID: cid, Oldest: true})
	require.NoError(t, err)
	require.Len(t, msgs.Items, 2)
	assert.Equal(t, "Your car is ready", msgs.Items[0]["content"])
	assert.NotNil(t, msgs.Items[1]["read_at"])

	_, err = d.SendMessage(ctx, "g1", "missing", map[string]any{"content": "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocuments_ThreadsAndNotifications(t *testing.T) {
	f := newFixture(t, "svc_threads", false)
	d := f.svcs.Documents

	disp, err := d.Create(ctx, "g1", Disputes, "", map[string]any{"subject": "Overcharged", "status": "open"})
	require.NoError(t, err)
	id := disp["id"].(string)

	thread, err := d.Reply(ctx, "g1", Disputes, id, "We will refund the difference")
	require.NoError(t, err)
	require.Len(t, thread["messages"], 1)

	resolved, err := d.ResolveDispute(ctx, "g1", id, "refunded", 50)
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved["status"])
	assert.Equal(t, 50.0, resolved["refund_amount"])

	for range 2 {
		d.notify(ctx, "g1", "system", "Hello", "", "")
	}
	n, err := d.MarkAllNotificationsRead(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, models.ChangeEvent{Collection: Notifications, ResourceID: Notifications, Op: models.ChangeUpdate, At: *f.clock}, f.pub.last())
	unread, err := d.UnreadCount(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}
