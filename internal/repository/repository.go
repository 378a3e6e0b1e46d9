package repository

import (
	"buyme/internal/auctionerrors"
	model "buyme/internal/models"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// AuctionDB is the persistence boundary for the auction engine. Reads return
// copies of stored state; every mutation goes through a per-auction Tx.
type AuctionDB interface {
	CreateListing(item model.Item, auction model.Auction) error
	GetItem(itemID string) (model.Item, error)
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() ([]model.Auction, error)
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	FindBid(bidID string) (model.Bid, error)
	NotificationsForUser(userID string) ([]model.Notification, error)
	Begin(auctionID string) (Tx, error)
}

// Tx is an exclusive critical section over one auction's price/winner state,
// its bid ledger and the notification sink. Begin blocks until the auction is
// free; Commit applies every staged write as one unit and Rollback discards
// them. Exactly one of Commit or Rollback must be called; Rollback after
// Commit is a no-op, so "defer tx.Rollback()" is always safe.
type Tx interface {
	// Auction returns the state snapshot the transaction operates on,
	// including staged changes.
	Auction() model.Auction
	// TopBids returns up to n surviving bids ordered by amount descending,
	// earlier timestamp first on equal amounts.
	TopBids(n int) []model.Bid
	AppendBid(bid model.Bid)
	SetLeader(price float64, winnerID string)
	// ClearLeader resets the auction to its pre-first-bid pricing state.
	ClearLeader()
	AddParticipant(userID string)
	// Close clears the active flag. Closed auctions never reopen.
	Close()
	Notify(n model.Notification)
	// DeleteBid removes a bid from the ledger, reporting whether it existed.
	DeleteBid(bidID string) bool
	Commit() error
	Rollback()
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// A coarse RWMutex guards the maps; a dedicated mutex per auction serializes
// transactions so independent auctions proceed fully in parallel.
type MemoryRepo struct {
	mu            sync.RWMutex
	items         map[string]model.Item
	auctions      map[string]model.Auction
	bids          map[string][]model.Bid          // auctionID -> ledger, append order
	bidIndex      map[string]string               // bidID -> auctionID
	notifications map[string][]model.Notification // userID -> appended records
	locks         map[string]*sync.Mutex          // auctionID -> tx lock
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:         make(map[string]model.Item),
		auctions:      make(map[string]model.Auction),
		bids:          make(map[string][]model.Bid),
		bidIndex:      make(map[string]string),
		notifications: make(map[string][]model.Notification),
		locks:         make(map[string]*sync.Mutex),
	}
}

// CreateListing stores a new item together with its auction.
func (r *MemoryRepo) CreateListing(item model.Item, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create listing: auction %s already exists", auction.AuctionID)
	}

	r.items[item.ItemID] = item
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetItem returns the item with the given id
func (r *MemoryRepo) GetItem(itemID string) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return item, nil
}

// GetAuction returns a copy of the auction with the given id
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return cloneAuction(a), nil
}

// ListAuctions returns copies of all stored auctions in unspecified order.
func (r *MemoryRepo) ListAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, cloneAuction(a))
	}
	return out, nil
}

// GetBidsByAuction returns the auction's ledger, newest first.
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})
	return bids, nil
}

// FindBid locates a bid by id across all auctions.
func (r *MemoryRepo) FindBid(bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionID, ok := r.bidIndex[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("find bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	for _, b := range r.bids[auctionID] {
		if b.BidID == bidID {
			return b, nil
		}
	}
	return model.Bid{}, fmt.Errorf("find bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
}

// NotificationsForUser returns the user's notification records, newest first.
func (r *MemoryRepo) NotificationsForUser(userID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := append([]model.Notification(nil), r.notifications[userID]...)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// Begin opens an exclusive transaction on the auction, blocking until any
// in-flight transaction on the same auction finishes.
func (r *MemoryRepo) Begin(auctionID string) (Tx, error) {
	r.mu.Lock()
	if _, ok := r.auctions[auctionID]; !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("begin tx for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	lock, ok := r.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[auctionID] = lock
	}
	r.mu.Unlock()

	lock.Lock()

	// Snapshot after the auction lock is held so the copy reflects the last
	// committed transaction.
	r.mu.RLock()
	tx := &memTx{
		repo:    r,
		lock:    lock,
		auction: cloneAuction(r.auctions[auctionID]),
		bids:    append([]model.Bid(nil), r.bids[auctionID]...),
	}
	r.mu.RUnlock()
	return tx, nil
}

// memTx stages all writes on private copies and publishes them on Commit.
type memTx struct {
	repo    *MemoryRepo
	lock    *sync.Mutex
	auction model.Auction
	bids    []model.Bid
	notes   []model.Notification
	done    bool
}

func (t *memTx) Auction() model.Auction {
	return cloneAuction(t.auction)
}

func (t *memTx) TopBids(n int) []model.Bid {
	ranked := append([]model.Bid(nil), t.bids...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		// Earlier bid outranks a later identical amount.
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (t *memTx) AppendBid(bid model.Bid) {
	t.bids = append(t.bids, bid)
}

func (t *memTx) SetLeader(price float64, winnerID string) {
	t.auction.CurrentPrice = price
	t.auction.WinnerID = winnerID
}

func (t *memTx) ClearLeader() {
	t.auction.CurrentPrice = 0
	t.auction.WinnerID = ""
}

func (t *memTx) AddParticipant(userID string) {
	for _, p := range t.auction.Participants {
		if p == userID {
			return
		}
	}
	t.auction.Participants = append(t.auction.Participants, userID)
}

func (t *memTx) Close() {
	t.auction.Active = false
}

func (t *memTx) Notify(n model.Notification) {
	t.notes = append(t.notes, n)
}

func (t *memTx) DeleteBid(bidID string) bool {
	for i, b := range t.bids {
		if b.BidID == bidID {
			t.bids = append(t.bids[:i], t.bids[i+1:]...)
			return true
		}
	}
	return false
}

// Commit publishes the staged auction state, ledger and notifications as one
// unit and releases the auction lock.
func (t *memTx) Commit() error {
	if t.done {
		return errors.New("commit: transaction already finished")
	}
	t.done = true

	r := t.repo
	auctionID := t.auction.AuctionID

	r.mu.Lock()
	for _, b := range r.bids[auctionID] {
		delete(r.bidIndex, b.BidID)
	}
	r.auctions[auctionID] = cloneAuction(t.auction)
	r.bids[auctionID] = t.bids
	for _, b := range t.bids {
		r.bidIndex[b.BidID] = auctionID
	}
	for _, n := range t.notes {
		r.notifications[n.UserID] = append(r.notifications[n.UserID], n)
	}
	r.mu.Unlock()

	t.lock.Unlock()
	return nil
}

// Rollback discards staged writes and releases the auction lock.
func (t *memTx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.lock.Unlock()
}

// cloneAuction copies an auction including its participant slice so callers
// never alias repository-owned state.
func cloneAuction(a model.Auction) model.Auction {
	a.Participants = append([]string(nil), a.Participants...)
	return a
}
