// Пакет repotest — in-memory реализация репозиториев для unit-тестов
// сервисов и обработчиков. Повторяет семантику PostgreSQL-схемы:
// уникальность, внешние ключи, обнуление и каскадное удаление.
package repotest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/servicedesk/internal/domain/model"
	"github.com/bigkaa/servicedesk/internal/repository"
)

// Store — общее хранилище всех in-memory репозиториев.
type Store struct {
	mu sync.Mutex

	nextID int64

	brigades     map[int64]model.Brigade
	lookups      map[model.LookupKind]map[int64]model.Lookup
	applications map[int64]model.Application
	users        map[int64]model.User
	outstanding  map[string]model.OutstandingToken
	blacklisted  map[string]bool

	// Err — если задана, каждый вызов репозитория возвращает её.
	Err error
	// TokenErr — если задана, запись outstanding token завершается ею.
	TokenErr error
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		brigades: make(map[int64]model.Brigade),
		lookups: map[model.LookupKind]map[int64]model.Lookup{
			model.KindLocation: {},
			model.KindObject:   {},
			model.KindStatus:   {},
		},
		applications: make(map[int64]model.Application),
		users:        make(map[int64]model.User),
		outstanding:  make(map[string]model.OutstandingToken),
		blacklisted:  make(map[string]bool),
	}
}

// Brigades возвращает репозиторий бригад.
func (s *Store) Brigades() repository.BrigadeRepository { return &brigades{s} }

// Lookups возвращает репозиторий справочника указанного вида.
func (s *Store) Lookups(kind model.LookupKind) repository.LookupRepository {
	if _, ok := s.lookups[kind]; !ok {
		panic(fmt.Sprintf("repotest: неизвестный справочник %q", kind))
	}
	return &lookups{s: s, kind: kind}
}

// Applications возвращает репозиторий заявок.
func (s *Store) Applications() repository.ApplicationRepository { return &applications{s} }

// Users возвращает репозиторий пользователей.
func (s *Store) Users() repository.UserRepository { return &users{s} }

// Tokens возвращает репозиторий токенов.
func (s *Store) Tokens() repository.TokenRepository { return &tokens{s} }

// ApplicationCount возвращает число заявок в хранилище.
func (s *Store) ApplicationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applications)
}

// SetUserActive меняет флаг is_active пользователя.
func (s *Store) SetUserActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		s.users[id] = u
	}
}

// lock захватывает мьютекс и возвращает Err, если она задана.
func (s *Store) lock() error {
	s.mu.Lock()
	if s.Err != nil {
		err := s.Err
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

// --- brigades ---

type brigades struct{ s *Store }

func (r *brigades) List(_ context.Context) ([]*model.Brigade, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	result := make([]*model.Brigade, 0, len(r.s.brigades))
	for _, b := range r.s.brigades {
		result = append(result, &b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (r *brigades) GetByID(_ context.Context, id int64) (*model.Brigade, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	b, ok := r.s.brigades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *brigades) Exists(_ context.Context, id int64) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()

	_, ok := r.s.brigades[id]
	return ok, nil
}

func (r *brigades) conflict(b *model.Brigade) bool {
	for id, other := range r.s.brigades {
		if id != b.ID && other.Number == b.Number {
			return true
		}
	}
	return false
}

func (r *brigades) Create(_ context.Context, b *model.Brigade) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if r.conflict(b) {
		return fmt.Errorf("%w: бригада %d уже существует", repository.ErrConflict, b.Number)
	}
	b.ID = r.s.newID()
	r.s.brigades[b.ID] = *b
	return nil
}

func (r *brigades) Update(_ context.Context, b *model.Brigade) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.s.brigades[b.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflict(b) {
		return fmt.Errorf("%w: бригада %d уже существует", repository.ErrConflict, b.Number)
	}
	r.s.brigades[b.ID] = *b
	return nil
}

func (r *brigades) Delete(_ context.Context, id int64) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.s.brigades[id]; !ok {
		return repository.ErrNotFound
	}
	for appID, a := range r.s.applications {
		if a.BrigadeID != nil && *a.BrigadeID == id {
			a.BrigadeID = nil
			r.s.applications[appID] = a
		}
	}
	delete(r.s.brigades, id)
	return nil
}

// --- lookups ---

type lookups struct {
	s    *Store
	kind model.LookupKind
}

func (r *lookups) Kind() model.LookupKind { return r.kind }

func (r *lookups) table() map[int64]model.Lookup { return r.s.lookups[r.kind] }

func (r *lookups) List(_ context.Context) ([]*model.Lookup, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	result := make([]*model.Lookup, 0, len(r.table()))
	for _, l := range r.table() {
		result = append(result, &l)
	}
	sort.Slice(result, func(i, j int) bool { return strings.Compare(result[i].Name, result[j].Name) < 0 })
	return result, nil
}

func (r *lookups) GetByID(_ context.Context, id int64) (*model.Lookup, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	l, ok := r.table()[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *lookups) Exists(_ context.Context, id int64) (bool, error) {
	if err := r.s.lock(); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()

	_, ok := r.table()[id]
	return ok, nil
}

func (r *lookups) conflict(l *model.Lookup) bool {
	for id, other := range r.table() {
		if id != l.ID && other.Name == l.Name {
			return true
		}
	}
	return false
}

func (r *lookups) Create(_ context.Context, l *model.Lookup) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if r.conflict(l) {
		return fmt.Errorf("%w: %s %q уже существует", repository.ErrConflict, r.kind, l.Name)
	}
	l.ID = r.s.newID()
	r.table()[l.ID] = *l
	return nil
}

func (r *lookups) Update(_ context.Context, l *model.Lookup) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.table()[l.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflict(l) {
		return fmt.Errorf("%w: %s %q уже существует", repository.ErrConflict, r.kind, l.Name)
	}
	r.table()[l.ID] = *l
	return nil
}

func (r *lookups) Delete(_ context.Context, id int64) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.table()[id]; !ok {
		return repository.ErrNotFound
	}
	for appID, a := range r.s.applications {
		if lookupRef(a, r.kind) == id {
			delete(r.s.applications, appID)
		}
	}
	delete(r.table(), id)
	return nil
}

// lookupRef возвращает ID справочника kind, на который ссылается заявка.
func lookupRef(a model.Application, kind model.LookupKind) int64 {
	switch kind {
	case model.KindLocation:
		return a.LocationID
	case model.KindObject:
		return a.ObjectID
	default:
		return a.StatusID
	}
}

// --- applications ---

type applications struct{ s *Store }

// resolve заполняет поля справочников, как JOIN в PostgreSQL-репозитории.
func (r *applications) resolve(a model.Application) *model.Application {
	a.BrigadeNumber = nil
	if a.BrigadeID != nil {
		if b, ok := r.s.brigades[*a.BrigadeID]; ok {
			n := b.Number
			a.BrigadeNumber = &n
		}
	}
	a.LocationName = r.s.lookups[model.KindLocation][a.LocationID].Name
	a.ObjectName = r.s.lookups[model.KindObject][a.ObjectID].Name
	a.StatusName = r.s.lookups[model.KindStatus][a.StatusID].Name
	return &a
}

func (r *applications) check(a *model.Application) error {
	for id, other := range r.s.applications {
		if id != a.ID && other.Identifier == a.Identifier {
			return fmt.Errorf("%w: заявка с таким идентификатором уже существует", repository.ErrConflict)
		}
	}
	if a.BrigadeID != nil {
		if _, ok := r.s.brigades[*a.BrigadeID]; !ok {
			return fmt.Errorf("%w: brigade %d", repository.ErrForeignKey, *a.BrigadeID)
		}
	}
	for _, kind := range []model.LookupKind{model.KindLocation, model.KindObject, model.KindStatus} {
		id := lookupRef(*a, kind)
		if _, ok := r.s.lookups[kind][id]; !ok {
			return fmt.Errorf("%w: %s %d", repository.ErrForeignKey, kind, id)
		}
	}
	return nil
}

func (r *applications) List(_ context.Context) ([]*model.Application, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	result := make([]*model.Application, 0, len(r.s.applications))
	for _, a := range r.s.applications {
		result = append(result, r.resolve(a))
	}
	slices.SortFunc(result, func(a, b *model.Application) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return result, nil
}

func (r *applications) GetByID(_ context.Context, id int64) (*model.Application, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	a, ok := r.s.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.resolve(a), nil
}

func (r *applications) Create(_ context.Context, a *model.Application) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	a.ID = 0
	if err := r.check(a); err != nil {
		return err
	}
	a.ID = r.s.newID()
	r.s.applications[a.ID] = *a
	*a = *r.resolve(*a)
	return nil
}

func (r *applications) Update(_ context.Context, a *model.Application) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[a.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.check(a); err != nil {
		return err
	}
	r.s.applications[a.ID] = *a
	*a = *r.resolve(*a)
	return nil
}

func (r *applications) Delete(_ context.Context, id int64) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.applications, id)
	return nil
}

// --- users ---

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u *model.User) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	for _, other := range r.s.users {
		if other.Username == u.Username {
			return fmt.Errorf("%w: пользователь %s уже существует", repository.ErrConflict, u.Username)
		}
	}
	u.ID = r.s.newID()
	u.DateJoined = time.Now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

func (r *users) CreateWithToken(_ context.Context, u *model.User, mint repository.MintFunc) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	for _, other := range r.s.users {
		if other.Username == u.Username {
			return fmt.Errorf("%w: пользователь %s уже существует", repository.ErrConflict, u.Username)
		}
	}
	u.ID = r.s.newID()
	u.DateJoined = time.Now().UTC()

	t, err := mint(u)
	if err != nil {
		u.ID = 0
		return fmt.Errorf("выпуск refresh token: %w", err)
	}
	if r.s.TokenErr != nil {
		u.ID = 0
		return r.s.TokenErr
	}
	if _, ok := r.s.outstanding[t.JTI]; ok {
		u.ID = 0
		return fmt.Errorf("%w: токен %s уже записан", repository.ErrConflict, t.JTI)
	}
	r.s.users[u.ID] = *u
	r.s.outstanding[t.JTI] = *t
	return nil
}

func (r *users) GetByID(_ context.Context, id int64) (*model.User, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	r.s.users[id] = u
	return nil
}

// --- tokens ---

type tokens struct{ s *Store }

func (r *tokens) insert(t *model.OutstandingToken) error {
	if r.s.TokenErr != nil {
		return r.s.TokenErr
	}
	if _, ok := r.s.outstanding[t.JTI]; ok {
		return fmt.Errorf("%w: токен %s уже записан", repository.ErrConflict, t.JTI)
	}
	if _, ok := r.s.users[t.UserID]; !ok {
		return fmt.Errorf("%w: пользователь %d", repository.ErrForeignKey, t.UserID)
	}
	r.s.outstanding[t.JTI] = *t
	return nil
}

func (r *tokens) blacklist(jti string) error {
	if _, ok := r.s.outstanding[jti]; !ok || r.s.blacklisted[jti] {
		return repository.ErrRevoked
	}
	r.s.blacklisted[jti] = true
	return nil
}

func (r *tokens) CreateOutstanding(_ context.Context, t *model.OutstandingToken) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	return r.insert(t)
}

func (r *tokens) Blacklist(_ context.Context, jti string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	return r.blacklist(jti)
}

func (r *tokens) Rotate(_ context.Context, oldJTI string, next *model.OutstandingToken) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()

	if _, ok := r.s.outstanding[next.JTI]; ok {
		return fmt.Errorf("%w: токен %s уже записан", repository.ErrConflict, next.JTI)
	}
	if err := r.blacklist(oldJTI); err != nil {
		return err
	}
	if err := r.insert(next); err != nil {
		delete(r.s.blacklisted, oldJTI)
		return err
	}
	return nil
}

func (r *tokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if err := r.s.lock(); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()

	var n int64
	for jti, t := range r.s.outstanding {
		if t.ExpiresAt.Before(now) {
			delete(r.s.outstanding, jti)
			delete(r.s.blacklisted, jti)
			n++
		}
	}
	return n, nil
}
