package services

import (
	"context"
	"testing"
	"time"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"

	"github.com/google/uuid"
)

type shareFixture struct {
	db     *memDB
	files  *memFiles
	shares *ShareService
	occs   *OccurrenceService
}

func newShareFixture() *shareFixture {
	db := newMemDB()
	files := newMemFiles()
	return &shareFixture{
		db:     db,
		files:  files,
		shares: NewShareService(db.shareStore(), db.occurrenceStore(), db.userStore()),
		occs:   NewOccurrenceService(db.occurrenceStore(), db.photoStore(), db.shareStore(), files),
	}
}

func (f *shareFixture) addUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := f.db.userStore().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (f *shareFixture) addOccurrence(t *testing.T, ownerID string) *models.Occurrence {
	t.Helper()
	o, err := f.occs.Create(context.Background(), ownerID, &CreateOccurrenceInput{
		Title:       "Overflowing bin",
		Description: "Bin at the corner is overflowing",
		Latitude:    38.72,
		Longitude:   -9.14,
	})
	if err != nil {
		t.Fatalf("create occurrence: %v", err)
	}
	return o
}

func TestShareUpsertsSinglePair(t *testing.T) {
	f := newShareFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	recipient := f.addUser(t, "friend@example.com")
	occ := f.addOccurrence(t, owner.ID)

	first, err := f.shares.Share(ctx, owner.ID, occ.ID, recipient.Email, models.PermissionView)
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	second, err := f.shares.Share(ctx, owner.ID, occ.ID, recipient.Email, models.PermissionAdmin)
	if err != nil {
		t.Fatalf("Share() second error = %v", err)
	}

	if len(f.db.shares) != 1 {
		t.Fatalf("grant count = %d, want 1", len(f.db.shares))
	}
	if second.ID != first.ID {
		t.Errorf("second share ID = %q, want existing %q", second.ID, first.ID)
	}
	if second.Permission != models.PermissionAdmin {
		t.Errorf("permission = %q, want ADMIN", second.Permission)
	}
}

func TestShareRules(t *testing.T) {
	f := newShareFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	other := f.addUser(t, "other@example.com")
	occ := f.addOccurrence(t, owner.ID)

	tests := []struct {
		name        string
		actingUser  string
		occurrence  string
		recipient   string
		permission  models.SharePermission
		wantKind    apperr.Kind
	}{
		{"non-owner cannot share", other.ID, occ.ID, other.Email, models.PermissionView, apperr.KindForbidden},
		{"missing occurrence", owner.ID, "no-such-id", other.Email, models.PermissionView, apperr.KindForbidden},
		{"unknown recipient", owner.ID, occ.ID, "nobody@example.com", models.PermissionView, apperr.KindNotFound},
		{"self share", owner.ID, occ.ID, owner.Email, models.PermissionView, apperr.KindInvalidInput},
		{"bad permission", owner.ID, occ.ID, other.Email, "SUPER", apperr.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.shares.Share(ctx, tt.actingUser, tt.occurrence, tt.recipient, tt.permission)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v (err = %v)", apperr.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestRevokeOnlyBySharer(t *testing.T) {
	f := newShareFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	recipient := f.addUser(t, "friend@example.com")
	occ := f.addOccurrence(t, owner.ID)

	share, err := f.shares.Share(ctx, owner.ID, occ.ID, recipient.Email, models.PermissionView)
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	if err := f.shares.Revoke(ctx, share.ID, recipient.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("recipient revoke: kind = %v, want KindForbidden", apperr.KindOf(err))
	}
	if err := f.shares.Revoke(ctx, "no-such-share", owner.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("missing share: kind = %v, want KindNotFound", apperr.KindOf(err))
	}
	if err := f.shares.Revoke(ctx, share.ID, owner.ID); err != nil {
		t.Errorf("sharer revoke: error = %v", err)
	}
	if len(f.db.shares) != 0 {
		t.Errorf("grant count after revoke = %d, want 0", len(f.db.shares))
	}
}

func TestCanAccess(t *testing.T) {
	f := newShareFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	grantee := f.addUser(t, "grantee@example.com")
	stranger := f.addUser(t, "stranger@example.com")
	occ := f.addOccurrence(t, owner.ID)

	if _, err := f.shares.Share(ctx, owner.ID, occ.ID, grantee.Email, models.PermissionView); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	tests := []struct {
		name         string
		occurrenceID string
		userID       string
		want         bool
	}{
		{"owner", occ.ID, owner.ID, true},
		{"grantee with VIEW", occ.ID, grantee.ID, true},
		{"stranger", occ.ID, stranger.ID, false},
		{"missing occurrence", "no-such-id", owner.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.shares.CanAccess(ctx, tt.occurrenceID, tt.userID)
			if err != nil {
				t.Fatalf("CanAccess() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShareRevokeScenario(t *testing.T) {
	f := newShareFixture()
	ctx := context.Background()
	userA := f.addUser(t, "a@example.com")
	userB := f.addUser(t, "b@example.com")
	occ := f.addOccurrence(t, userA.ID)

	share, err := f.shares.Share(ctx, userA.ID, occ.ID, userB.Email, models.PermissionView)
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	withMe, err := f.shares.SharedWithMe(ctx, userB.ID)
	if err != nil {
		t.Fatalf("SharedWithMe() error = %v", err)
	}
	if len(withMe) != 1 || withMe[0].OccurrenceID != occ.ID {
		t.Fatalf("SharedWithMe() = %v, want one grant on %s", withMe, occ.ID)
	}
	if withMe[0].SharedBy == nil || withMe[0].SharedBy.ID != userA.ID {
		t.Errorf("SharedBy = %v, want user A's public identity", withMe[0].SharedBy)
	}

	byMe, err := f.shares.SharedByMe(ctx, userA.ID)
	if err != nil {
		t.Fatalf("SharedByMe() error = %v", err)
	}
	if len(byMe) != 1 || byMe[0].SharedWith == nil || byMe[0].SharedWith.ID != userB.ID {
		t.Fatalf("SharedByMe() = %v, want one grant to user B", byMe)
	}

	if err := f.shares.Revoke(ctx, share.ID, userA.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	withMe, err = f.shares.SharedWithMe(ctx, userB.ID)
	if err != nil {
		t.Fatalf("SharedWithMe() after revoke error = %v", err)
	}
	if len(withMe) != 0 {
		t.Errorf("SharedWithMe() after revoke = %d grants, want 0", len(withMe))
	}

	canAccess, err := f.shares.CanAccess(ctx, occ.ID, userB.ID)
	if err != nil {
		t.Fatalf("CanAccess() error = %v", err)
	}
	if canAccess {
		t.Error("CanAccess() after revoke = true, want false")
	}
}
