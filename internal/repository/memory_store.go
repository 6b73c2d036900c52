// internal/repository/memory_store.go
package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type memoryData struct {
	users         map[uuid.UUID]models.User
	sessions      map[uuid.UUID]models.Session
	addresses     map[uuid.UUID]models.Address
	categories    map[uuid.UUID]models.Category
	products      map[uuid.UUID]models.Product
	lifestyle     map[uuid.UUID]models.LifestyleItem
	carts         map[uuid.UUID]models.Cart
	cartItems     map[uuid.UUID]models.CartItem
	orders        map[uuid.UUID]models.Order
	orderItems    map[uuid.UUID][]models.OrderItem
	wishlists     map[uuid.UUID]models.Wishlist
	reviews       map[uuid.UUID]models.Review
	enquiries     map[uuid.UUID]models.Enquiry
	newsletter    map[string]models.NewsletterSubscription
	auditLogs     []models.AuditLog
	notifications []models.AdminNotification
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:      make(map[uuid.UUID]models.User),
		sessions:   make(map[uuid.UUID]models.Session),
		addresses:  make(map[uuid.UUID]models.Address),
		categories: make(map[uuid.UUID]models.Category),
		products:   make(map[uuid.UUID]models.Product),
		lifestyle:  make(map[uuid.UUID]models.LifestyleItem),
		carts:      make(map[uuid.UUID]models.Cart),
		cartItems:  make(map[uuid.UUID]models.CartItem),
		orders:     make(map[uuid.UUID]models.Order),
		orderItems: make(map[uuid.UUID][]models.OrderItem),
		wishlists:  make(map[uuid.UUID]models.Wishlist),
		reviews:    make(map[uuid.UUID]models.Review),
		enquiries:  make(map[uuid.UUID]models.Enquiry),
		newsletter: make(map[string]models.NewsletterSubscription),
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (d *memoryData) clone() *memoryData {
	orderItems := make(map[uuid.UUID][]models.OrderItem, len(d.orderItems))
	for k, v := range d.orderItems {
		orderItems[k] = append([]models.OrderItem(nil), v...)
	}

	return &memoryData{
		users:         copyMap(d.users),
		sessions:      copyMap(d.sessions),
		addresses:     copyMap(d.addresses),
		categories:    copyMap(d.categories),
		products:      copyMap(d.products),
		lifestyle:     copyMap(d.lifestyle),
		carts:         copyMap(d.carts),
		cartItems:     copyMap(d.cartItems),
		orders:        copyMap(d.orders),
		orderItems:    orderItems,
		wishlists:     copyMap(d.wishlists),
		reviews:       copyMap(d.reviews),
		enquiries:     copyMap(d.enquiries),
		newsletter:    copyMap(d.newsletter),
		auditLogs:     append([]models.AuditLog(nil), d.auditLogs...),
		notifications: append([]models.AdminNotification(nil), d.notifications...),
	}
}

// MemoryStore keeps everything in process memory behind one mutex. A
// transaction works on a copy of the data and swaps it in on success, so
// a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu   *sync.Mutex
	root *MemoryStore
	data *memoryData
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		mu:   &sync.Mutex{},
		data: newMemoryData(),
	}
	s.root = s
	return s
}

// lock is a no-op inside a transaction, which already holds the mutex.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{
		mu:   s.mu,
		root: s.root,
		data: s.root.data.clone(),
		inTx: true,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.data = tx.data
	return nil
}

func (s *MemoryStore) d() *memoryData {
	if s.inTx {
		return s.data
	}
	return s.root.data
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	d := s.d()

	for _, existing := range d.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	ensureID(&user.ID)
	stamp(&user.CreatedAt, &user.UpdatedAt)
	d.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.lock()()

	user, ok := s.d().users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock()()

	for _, user := range s.d().users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	d := s.d()

	if _, ok := d.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range d.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	stamp(nil, &user.UpdatedAt)
	d.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	defer s.lock()()

	users := make([]models.User, 0, len(s.d().users))
	for _, user := range s.d().users {
		if params.Search != "" &&
			!containsFold(user.Email, params.Search) &&
			!containsFold(user.FirstName, params.Search) &&
			!containsFold(user.LastName, params.Search) {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	start, end := params.Bounds(len(users))
	return users[start:end], int64(len(users)), nil
}

func (s *MemoryStore) CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error) {
	defer s.lock()()

	var count int64
	for _, user := range s.d().users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

// Sessions

func (s *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	defer s.lock()()

	ensureID(&session.ID)
	stamp(&session.CreatedAt, nil)
	s.d().sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	defer s.lock()()

	session, ok := s.d().sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	delete(s.d().sessions, id)
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	defer s.lock()()

	var removed int64
	for id, session := range s.d().sessions {
		if !session.ExpiresAt.After(before) {
			delete(s.d().sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Addresses

func (s *MemoryStore) CreateAddress(ctx context.Context, address *models.Address) error {
	defer s.lock()()

	ensureID(&address.ID)
	stamp(&address.CreatedAt, &address.UpdatedAt)
	s.d().addresses[address.ID] = *address
	return nil
}

func (s *MemoryStore) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	defer s.lock()()

	address, ok := s.d().addresses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &address, nil
}

func (s *MemoryStore) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	defer s.lock()()

	var addresses []models.Address
	for _, address := range s.d().addresses {
		if address.UserID == userID {
			addresses = append(addresses, address)
		}
	}
	sort.Slice(addresses, func(i, j int) bool {
		if addresses[i].IsDefault != addresses[j].IsDefault {
			return addresses[i].IsDefault
		}
		return addresses[i].CreatedAt.Before(addresses[j].CreatedAt)
	})
	return addresses, nil
}

func (s *MemoryStore) UpdateAddress(ctx context.Context, address *models.Address) error {
	defer s.lock()()

	if _, ok := s.d().addresses[address.ID]; !ok {
		return ErrNotFound
	}
	stamp(nil, &address.UpdatedAt)
	s.d().addresses[address.ID] = *address
	return nil
}

func (s *MemoryStore) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()

	if _, ok := s.d().addresses[id]; !ok {
		return ErrNotFound
	}
	delete(s.d().addresses, id)
	return nil
}

func (s *MemoryStore) ClearDefaultAddresses(ctx context.Context, userID, exceptID uuid.UUID) error {
	defer s.lock()()

	for id, address := range s.d().addresses {
		if address.UserID == userID && id != exceptID && address.IsDefault {
			address.IsDefault = false
			s.d().addresses[id] = address
		}
	}
	return nil
}

// Admin

func (s *MemoryStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	defer s.lock()()

	ensureID(&log.ID)
	stamp(&log.CreatedAt, &log.UpdatedAt)
	s.d().auditLogs = append(s.d().auditLogs, *log)
	return nil
}

func (s *MemoryStore) CreateAdminNotification(ctx context.Context, notification *models.AdminNotification) error {
	defer s.lock()()

	ensureID(&notification.ID)
	stamp(&notification.CreatedAt, &notification.UpdatedAt)
	if notification.Status == "" {
		notification.Status = models.NotificationUnread
	}
	s.d().notifications = append(s.d().notifications, *notification)
	return nil
}

func (s *MemoryStore) ListAdminNotifications(ctx context.Context, limit int) ([]models.AdminNotification, error) {
	defer s.lock()()

	all := s.d().notifications
	result := make([]models.AdminNotification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		result = append(result, all[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
