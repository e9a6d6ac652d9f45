package wallet

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"
)

type memoryRepository struct {
    mu      sync.Mutex
    storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
    return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, exists := r.storage[wallet.ID]; exists {
        return errors.New("wallet exists")
    }
    r.storage[wallet.ID] = wallet
    return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    wallet, ok := r.storage[id]
    if !ok {
        return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
    }
    return wallet, nil
}

func (r *memoryRepository) UpdateBalance(ctx context.Context, id string, apply BalanceFunc) (Wallet, error) {
    if err := ctx.Err(); err != nil {
        return Wallet{}, err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    wallet, ok := r.storage[id]
    if !ok {
        return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
    }
    next, err := apply(wallet)
    if err != nil {
        return Wallet{}, err
    }
    wallet.Balance = next
    wallet.UpdatedAt = time.Now().UTC()
    r.storage[id] = wallet
    return wallet, nil
}
