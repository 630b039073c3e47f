package services

import (
	"bytes"
	"context"
	"io"
	"sort"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"
	"cleancity-backend/internal/repository"
)

// memDB is an in-memory stand-in for the relational store, shared by the
// per-aggregate fakes so cascades behave like the schema's foreign keys.
type memDB struct {
	users  map[string]*models.User
	occs   map[string]*models.Occurrence
	photos map[string]*models.Photo
	shares map[string]*models.SharedOccurrence
}

func newMemDB() *memDB {
	return &memDB{
		users:  make(map[string]*models.User),
		occs:   make(map[string]*models.Occurrence),
		photos: make(map[string]*models.Photo),
		shares: make(map[string]*models.SharedOccurrence),
	}
}

func (db *memDB) userStore() *memUsers             { return &memUsers{db} }
func (db *memDB) occurrenceStore() *memOccurrences { return &memOccurrences{db} }
func (db *memDB) photoStore() *memPhotos           { return &memPhotos{db} }
func (db *memDB) shareStore() *memShares           { return &memShares{db} }

type memUsers struct{ db *memDB }

func (s *memUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range s.db.users {
		if u.Email == user.Email {
			return apperr.Conflict("User already exists with this email")
		}
	}
	clone := *user
	s.db.users[user.ID] = &clone
	return nil
}

func (s *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	clone := *u
	return &clone, nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.db.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (s *memUsers) UpdateProfile(ctx context.Context, userID string, fullName, avatar *string) (*models.User, error) {
	u, ok := s.db.users[userID]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if avatar != nil {
		u.Avatar = avatar
	}
	clone := *u
	return &clone, nil
}

func (s *memUsers) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	u, ok := s.db.users[userID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

type memOccurrences struct{ db *memDB }

func (s *memOccurrences) Create(_ context.Context, o *models.Occurrence) error {
	clone := *o
	s.db.occs[o.ID] = &clone
	return nil
}

func (s *memOccurrences) GetByID(_ context.Context, id string) (*models.Occurrence, error) {
	o, ok := s.db.occs[id]
	if !ok {
		return nil, apperr.NotFound("Occurrence not found")
	}
	clone := *o
	return &clone, nil
}

func (s *memOccurrences) sorted() []*models.Occurrence {
	var out []*models.Occurrence
	for _, o := range s.db.occs {
		clone := *o
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memOccurrences) List(_ context.Context, limit, offset int) ([]*models.Occurrence, int, error) {
	all := s.sorted()
	return paginate(all, limit, offset), len(all), nil
}

func (s *memOccurrences) ListByUser(_ context.Context, userID string, limit, offset int) ([]*models.Occurrence, int, error) {
	var mine []*models.Occurrence
	for _, o := range s.sorted() {
		if o.UserID == userID {
			mine = append(mine, o)
		}
	}
	return paginate(mine, limit, offset), len(mine), nil
}

func (s *memOccurrences) ListByBounds(_ context.Context, minLat, maxLat, minLon, maxLon float64) ([]*models.Occurrence, error) {
	var out []*models.Occurrence
	for _, o := range s.sorted() {
		if o.Latitude >= minLat && o.Latitude <= maxLat && o.Longitude >= minLon && o.Longitude <= maxLon {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOccurrences) Update(_ context.Context, id string, p *repository.UpdateParams) (*models.Occurrence, error) {
	o, ok := s.db.occs[id]
	if !ok {
		return nil, apperr.NotFound("Occurrence not found")
	}
	if p.Title != nil {
		o.Title = *p.Title
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.Latitude != nil {
		o.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		o.Longitude = *p.Longitude
	}
	if p.Address != nil {
		o.Address = p.Address
	}
	if p.AccelerometerX != nil {
		o.AccelerometerX = p.AccelerometerX
	}
	if p.AccelerometerY != nil {
		o.AccelerometerY = p.AccelerometerY
	}
	if p.AccelerometerZ != nil {
		o.AccelerometerZ = p.AccelerometerZ
	}
	if p.Temperature != nil {
		o.Temperature = p.Temperature
	}
	if p.Humidity != nil {
		o.Humidity = p.Humidity
	}
	if p.Pressure != nil {
		o.Pressure = p.Pressure
	}
	clone := *o
	return &clone, nil
}

func (s *memOccurrences) UpdateStatus(_ context.Context, id string, status models.OccurrenceStatus) (*models.Occurrence, error) {
	o, ok := s.db.occs[id]
	if !ok {
		return nil, apperr.NotFound("Occurrence not found")
	}
	o.Status = status
	clone := *o
	return &clone, nil
}

// Delete mirrors the schema's ON DELETE CASCADE to photos and shares.
func (s *memOccurrences) Delete(_ context.Context, id string) error {
	if _, ok := s.db.occs[id]; !ok {
		return apperr.NotFound("Occurrence not found")
	}
	delete(s.db.occs, id)
	for pid, p := range s.db.photos {
		if p.OccurrenceID == id {
			delete(s.db.photos, pid)
		}
	}
	for sid, sh := range s.db.shares {
		if sh.OccurrenceID == id {
			delete(s.db.shares, sid)
		}
	}
	return nil
}

func (s *memOccurrences) Stats(_ context.Context) (*models.OccurrenceStats, error) {
	stats := &models.OccurrenceStats{}
	for _, o := range s.db.occs {
		stats.Total++
		switch o.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusVerified:
			stats.Verified++
		case models.StatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

type memPhotos struct{ db *memDB }

func (s *memPhotos) Create(_ context.Context, photo *models.Photo) error {
	clone := *photo
	s.db.photos[photo.ID] = &clone
	return nil
}

func (s *memPhotos) GetByID(_ context.Context, id string) (*models.Photo, error) {
	p, ok := s.db.photos[id]
	if !ok {
		return nil, apperr.NotFound("Photo not found")
	}
	clone := *p
	return &clone, nil
}

func (s *memPhotos) ListByOccurrence(_ context.Context, occurrenceID string) ([]*models.Photo, error) {
	var out []*models.Photo
	for _, p := range s.db.photos {
		if p.OccurrenceID == occurrenceID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memPhotos) Delete(_ context.Context, id string) error {
	if _, ok := s.db.photos[id]; !ok {
		return apperr.NotFound("Photo not found")
	}
	delete(s.db.photos, id)
	return nil
}

type memShares struct{ db *memDB }

func (s *memShares) Upsert(_ context.Context, share *models.SharedOccurrence) (*models.SharedOccurrence, error) {
	for _, existing := range s.db.shares {
		if existing.OccurrenceID == share.OccurrenceID && existing.SharedWithID == share.SharedWithID {
			existing.Permission = share.Permission
			clone := *existing
			return &clone, nil
		}
	}
	clone := *share
	s.db.shares[share.ID] = &clone
	result := clone
	return &result, nil
}

func (s *memShares) GetByID(_ context.Context, id string) (*models.SharedOccurrence, error) {
	sh, ok := s.db.shares[id]
	if !ok {
		return nil, apperr.NotFound("Share not found")
	}
	clone := *sh
	return &clone, nil
}

func (s *memShares) Exists(_ context.Context, occurrenceID, userID string) (bool, error) {
	for _, sh := range s.db.shares {
		if sh.OccurrenceID == occurrenceID && sh.SharedWithID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memShares) detail(sh *models.SharedOccurrence, counterpartID string, asSharer bool) *models.ShareDetail {
	d := &models.ShareDetail{SharedOccurrence: *sh}
	if o, ok := s.db.occs[sh.OccurrenceID]; ok {
		clone := *o
		d.Occurrence = &clone
	}
	if u, ok := s.db.users[counterpartID]; ok {
		pub := &models.PublicUser{ID: u.ID, Email: u.Email, FullName: u.FullName}
		if asSharer {
			d.SharedBy = pub
		} else {
			d.SharedWith = pub
		}
	}
	return d
}

func (s *memShares) ListSharedWith(_ context.Context, userID string) ([]*models.ShareDetail, error) {
	var out []*models.ShareDetail
	for _, sh := range s.db.shares {
		if sh.SharedWithID == userID {
			out = append(out, s.detail(sh, sh.SharedByID, true))
		}
	}
	return out, nil
}

func (s *memShares) ListSharedBy(_ context.Context, userID string) ([]*models.ShareDetail, error) {
	var out []*models.ShareDetail
	for _, sh := range s.db.shares {
		if sh.SharedByID == userID {
			out = append(out, s.detail(sh, sh.SharedWithID, false))
		}
	}
	return out, nil
}

func (s *memShares) ListByOccurrence(_ context.Context, occurrenceID string) ([]*models.SharedOccurrence, error) {
	var out []*models.SharedOccurrence
	for _, sh := range s.db.shares {
		if sh.OccurrenceID == occurrenceID {
			clone := *sh
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memShares) Delete(_ context.Context, id string) error {
	if _, ok := s.db.shares[id]; !ok {
		return apperr.NotFound("Share not found")
	}
	delete(s.db.shares, id)
	return nil
}

func paginate(in []*models.Occurrence, limit, offset int) []*models.Occurrence {
	if offset >= len(in) {
		return nil
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

// memFiles is an in-memory file store.
type memFiles struct {
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (s *memFiles) Write(_ context.Context, name string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	s.files[name] = data
	return name, int64(len(data)), nil
}

func (s *memFiles) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, apperr.NotFound("file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memFiles) Delete(_ context.Context, path string) error {
	delete(s.files, path)
	return nil
}

func (s *memFiles) Exists(_ context.Context, path string) (bool, error) {
	_, ok := s.files[path]
	return ok, nil
}
