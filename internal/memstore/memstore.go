// Package memstore keeps users, products, orders and stock adjustments in
// memory. It satisfies the store interfaces in app/services with the same
// semantics as app/repositories, so HTTP tests can run without MongoDB.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
)

// Users stores accounts keyed by email and role.
type Users struct {
	mu    sync.Mutex
	items map[string]models.User
}

func NewUsers() *Users { return &Users{items: map[string]models.User{}} }

func userKey(email, role string) string { return role + "|" + email }

func (s *Users) FindByEmailRole(_ context.Context, email, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[userKey(email, role)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(user.Email, user.Role)
	if _, ok := s.items[k]; ok {
		return repositories.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	s.items[k] = *user
	return nil
}

// UpsertProfile round-trips the stored user through BSON so field names
// follow the model's bson tags exactly as MongoDB would apply them.
func (s *Users) UpsertProfile(_ context.Context, email, role string, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(email, role)
	u, ok := s.items[k]
	if !ok {
		u = models.User{ID: primitive.NewObjectID(), Email: email, Role: role}
	}

	raw, err := bson.Marshal(u)
	if err != nil {
		return err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for key, v := range fields {
		doc[key] = v
	}
	if raw, err = bson.Marshal(doc); err != nil {
		return err
	}
	var merged models.User
	if err := bson.Unmarshal(raw, &merged); err != nil {
		return err
	}
	s.items[k] = merged
	return nil
}

// Products stores listings and applies stock deltas atomically.
type Products struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Product
}

func NewProducts() *Products {
	return &Products{items: map[primitive.ObjectID]models.Product{}}
}

func (s *Products) Insert(_ context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	s.items[p.ID] = *p
	s.mu.Unlock()
	return nil
}

func (s *Products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (s *Products) List(_ context.Context, farmerEmail string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Product{}
	for _, p := range s.items {
		if farmerEmail == "" || p.FarmerEmail == farmerEmail {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Products) Update(_ context.Context, id primitive.ObjectID, u repositories.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Name, p.Price, p.Quantity = u.Name, u.Price, u.Quantity
	if u.Image != nil {
		p.Image = *u.Image
	}
	s.items[id] = p
	return nil
}

func (s *Products) Delete(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	delete(s.items, id)
	return &p, nil
}

func (s *Products) Adjust(_ context.Context, id primitive.ObjectID, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || p.Quantity+delta < 0 {
		return false, nil
	}
	p.Quantity += delta
	s.items[id] = p
	return true, nil
}

func (s *Products) ApplyMarked(_ context.Context, id, adjID primitive.ObjectID, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || contains(p.PendingAdjustments, adjID) || p.Quantity+delta < 0 {
		return false, nil
	}
	p.Quantity += delta
	p.PendingAdjustments = append(p.PendingAdjustments, adjID)
	s.items[id] = p
	return true, nil
}

func (s *Products) RevertMarked(_ context.Context, id, adjID primitive.ObjectID, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok || !contains(p.PendingAdjustments, adjID) {
		return false, nil
	}
	p.Quantity -= delta
	p.PendingAdjustments = remove(p.PendingAdjustments, adjID)
	s.items[id] = p
	return true, nil
}

func (s *Products) ClearMarker(_ context.Context, id, adjID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.items[id]; ok {
		p.PendingAdjustments = remove(p.PendingAdjustments, adjID)
		s.items[id] = p
	}
	return nil
}

func (s *Products) HasMarker(_ context.Context, id, adjID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	return ok && contains(p.PendingAdjustments, adjID), nil
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Orders stores placed orders.
type Orders struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Order
}

func NewOrders() *Orders {
	return &Orders{items: map[primitive.ObjectID]models.Order{}}
}

func (s *Orders) Insert(_ context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	s.items[o.ID] = *o
	s.mu.Unlock()
	return nil
}

func (s *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (s *Orders) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *Orders) List(_ context.Context, f repositories.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.items {
		if f.BuyerEmail != "" && o.BuyerEmail != f.BuyerEmail {
			continue
		}
		if f.FarmerEmail != "" && o.FarmerEmail != f.FarmerEmail {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Orders) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = status
	s.items[id] = o
	return nil
}

func (s *Orders) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

// Journal stores stock adjustment entries.
type Journal struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.StockAdjustment
}

func NewJournal() *Journal {
	return &Journal{items: map[primitive.ObjectID]models.StockAdjustment{}}
}

// All returns every entry, oldest first.
func (s *Journal) All() []models.StockAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StockAdjustment, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Journal) Insert(_ context.Context, a *models.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[a.ID] = *a
	return nil
}

func (s *Journal) FindByID(_ context.Context, id primitive.ObjectID) (*models.StockAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (s *Journal) Settle(_ context.Context, id primitive.ObjectID, state, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok || a.State != models.AdjustmentPending {
		return false, nil
	}
	a.State = state
	if errMsg != "" {
		a.Error = errMsg
	}
	a.UpdatedAt = time.Now().UTC()
	s.items[id] = a
	return true, nil
}

func (s *Journal) RecordAttempt(_ context.Context, id primitive.ObjectID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.items[id]; ok && a.State == models.AdjustmentPending {
		a.Attempts++
		a.Error = errMsg
		a.UpdatedAt = time.Now().UTC()
		s.items[id] = a
	}
	return nil
}

func (s *Journal) ListPending(_ context.Context, cutoff time.Time) ([]models.StockAdjustment, error) {
	out := []models.StockAdjustment{}
	for _, a := range s.All() {
		if a.State == models.AdjustmentPending && a.CreatedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Journal) AppliedFor(_ context.Context, orderID primitive.ObjectID, reason string, exclude primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID != exclude && a.OrderID == orderID && a.Reason == reason && a.State == models.AdjustmentApplied {
			return true, nil
		}
	}
	return false, nil
}
