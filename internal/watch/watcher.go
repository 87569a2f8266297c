// Package watch keeps pool reserve snapshots fresh by subscribing to each
// pool's reserve account on the settlement network. The valuation resolver
// and analytics jobs read whatever snapshot the watcher last applied; the
// engine never blocks on it.
package watch

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/solana"
	"solana-fee-engine/internal/storage"
)

// Reserve account layout: three little-endian u64 counters followed by the
// curve-complete flag.
const (
	offsetVirtualToken = 0
	offsetVirtualBase  = 8
	offsetRealBase     = 16
	offsetComplete     = 24
	accountDataLen     = 25
)

// On-chain amounts are fixed-point integers; snapshots hold natural units.
const (
	baseDecimals  = 9 // lamports per base asset
	tokenDecimals = 6
)

// DecodeReserveAccount decodes a base64 reserve account payload into a
// snapshot plus the curve-complete flag.
func DecodeReserveAccount(dataBase64 string) (domain.ReserveSnapshot, bool, error) {
	raw, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return domain.ReserveSnapshot{}, false, fmt.Errorf("decode account data: %w", err)
	}
	if len(raw) < accountDataLen {
		return domain.ReserveSnapshot{}, false, fmt.Errorf("account data too short: %d bytes", len(raw))
	}

	snapshot := domain.ReserveSnapshot{
		VirtualToken: decimal.NewFromInt(int64(binary.LittleEndian.Uint64(raw[offsetVirtualToken:]))).Shift(-tokenDecimals),
		VirtualBase:  decimal.NewFromInt(int64(binary.LittleEndian.Uint64(raw[offsetVirtualBase:]))).Shift(-baseDecimals),
		RealBase:     decimal.NewFromInt(int64(binary.LittleEndian.Uint64(raw[offsetRealBase:]))).Shift(-baseDecimals),
	}
	graduated := raw[offsetComplete] != 0

	return snapshot, graduated, nil
}

// Watcher subscribes to reserve accounts and applies updates to the pool
// store.
type Watcher struct {
	pools  storage.PoolStore
	ws     solana.WSClient
	rpc    solana.RPCClient
	logger *log.Logger

	wg sync.WaitGroup
}

// NewWatcher creates a reserve watcher.
func NewWatcher(pools storage.PoolStore, ws solana.WSClient, rpc solana.RPCClient, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		pools:  pools,
		ws:     ws,
		rpc:    rpc,
		logger: logger,
	}
}

// Start seeds each active pool's snapshot with a direct account read, then
// subscribes to its reserve account and consumes updates until ctx is
// cancelled. A pool whose seed read or subscription fails is logged and
// skipped; its snapshot simply goes stale until restart.
func (w *Watcher) Start(ctx context.Context) error {
	pools, err := w.pools.ListByStatus(ctx, domain.PoolStatusActive)
	if err != nil {
		return fmt.Errorf("list active pools: %w", err)
	}

	subscribed := 0
	for _, pool := range pools {
		if pool.ReserveAccount == "" {
			continue
		}

		w.seed(ctx, pool)

		ch, err := w.ws.SubscribeAccount(ctx, pool.ReserveAccount)
		if err != nil {
			w.logger.Printf("[watch] pool %s: subscribe %s: %v", pool.PoolID, pool.ReserveAccount, err)
			continue
		}
		subscribed++

		w.wg.Add(1)
		go w.consume(ctx, pool.PoolID, ch)
	}

	w.logger.Printf("[watch] watching %d/%d reserve accounts", subscribed, len(pools))
	return nil
}

// seed reads the reserve account over RPC and applies it, so the snapshot
// is current before the first notification arrives.
func (w *Watcher) seed(ctx context.Context, pool *domain.Pool) {
	info, err := w.rpc.GetAccountInfo(ctx, pool.ReserveAccount)
	if err != nil {
		w.logger.Printf("[watch] pool %s: seed read %s: %v", pool.PoolID, pool.ReserveAccount, err)
		return
	}
	if info == nil {
		return
	}
	if err := w.apply(ctx, pool.PoolID, solana.AccountNotification{
		Pubkey:   pool.ReserveAccount,
		Lamports: info.Lamports,
		Data:     info.Data,
	}); err != nil {
		w.logger.Printf("[watch] pool %s: seed apply: %v", pool.PoolID, err)
	}
}

// Wait blocks until all subscription consumers exit.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// consume applies account updates for one pool until the channel closes or
// ctx is cancelled.
func (w *Watcher) consume(ctx context.Context, poolID string, ch <-chan solana.AccountNotification) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}
			if err := w.apply(ctx, poolID, notif); err != nil {
				w.logger.Printf("[watch] pool %s: %v", poolID, err)
			}
		}
	}
}

// apply decodes one account update and writes the fresh snapshot. A
// completed curve flips the pool to graduated.
func (w *Watcher) apply(ctx context.Context, poolID string, notif solana.AccountNotification) error {
	snapshot, graduated, err := DecodeReserveAccount(notif.Data)
	if err != nil {
		return err
	}

	if err := w.pools.UpdateReserves(ctx, poolID, snapshot, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("update reserves: %w", err)
	}
	observability.RecordReserveUpdate()

	if graduated {
		if err := w.pools.UpdateStatus(ctx, poolID, domain.PoolStatusGraduated); err != nil {
			return fmt.Errorf("graduate pool: %w", err)
		}
		observability.RecordPoolGraduated()
		w.logger.Printf("[watch] pool %s graduated at slot %d", poolID, notif.Slot)
	}

	return nil
}
