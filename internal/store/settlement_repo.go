package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"vrflottery/internal/models"
	"vrflottery/internal/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/logger"
	"github.com/timshannon/badgerhold/v4"
)

const (
	settlementStoreDir = "settlements"
	valueLogGCInterval = 30 * time.Minute
)

var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrMissingDrawingID   = errors.New("settlement has no drawing id")
)

type settlementRepository struct {
	store  *badgerhold.Store
	stopGC func()
}

// NewSettlementRepository opens the settlement history under baseDir, or keeps it
// in memory when baseDir is empty.
func NewSettlementRepository(baseDir string) (services.SettlementRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, settlementStoreDir)
	}
	store, stopGC, err := openStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open settlement store: %w", err)
	}
	return &settlementRepository{store: store, stopGC: stopGC}, nil
}

// Add stores a settlement under its drawing id. Request ids may repeat across
// restarts, so they are only indexed.
func (r *settlementRepository) Add(ctx context.Context, settlement models.Settlement) error {
	if settlement.ID == "" {
		return ErrMissingDrawingID
	}
	if err := r.store.Insert(settlement.ID, settlement); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("settlement of drawing %s already stored", settlement.ID)
		}
		return err
	}
	return nil
}

func (r *settlementRepository) Get(ctx context.Context, drawingID string) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.store.Get(drawingID, &settlement); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: drawing %s", ErrSettlementNotFound, drawingID)
		}
		return nil, err
	}
	return &settlement, nil
}

// List returns up to limit settlements, newest first. A non-positive limit returns all.
func (r *settlementRepository) List(ctx context.Context, limit int) ([]models.Settlement, error) {
	query := (&badgerhold.Query{}).SortBy("SettledAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	settlements := make([]models.Settlement, 0)
	if err := r.store.Find(&settlements, query); err != nil {
		return nil, err
	}
	return settlements, nil
}

func (r *settlementRepository) Close() {
	r.stopGC()
	if err := r.store.Close(); err != nil {
		logger.Errorf("failed to close settlement store: %v", err)
	}
}

// openStore opens a badgerhold store in dir, in memory when dir is empty.
// On disk it also starts value log GC; the returned func stops it and waits
// for a running pass to finish.
func openStore(dir string) (*badgerhold.Store, func(), error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts = opts.WithCompression(options.ZSTD)
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, nil, err
	}
	if dir == "" {
		return store, func() {}, nil
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(valueLogGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				err := store.Badger().RunValueLogGC(0.5)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logger.Warningf("settlement store value log gc: %v", err)
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
	return store, stop, nil
}

// badgerLogger routes badger's output to the process logger. Debug output is dropped.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { logger.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { logger.Warningf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { logger.Infof(format, args...) }
func (badgerLogger) Debugf(string, ...interface{})               {}
