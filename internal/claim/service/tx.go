package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"claimdesk/internal/claim/models"
	tokenstore "claimdesk/internal/claim/store/token"
	dirmodels "claimdesk/internal/directory/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	txcontext "claimdesk/pkg/platform/tx"
)

const defaultPromotionTxTimeout = 5 * time.Second

// PromotionStores are the stores a claim transaction writes to: supervisor
// redemption (token + claim flag) and promotion (claim, company, user). Inside
// RunInTx they share one transactional boundary.
type PromotionStores struct {
	Claims    ClaimStore
	Tokens    TokenStore
	Companies CompanyStore
	Users     UserStore
}

// PromotionTx provides the transactional boundary of the claim workflow.
// Implementations may wrap a database transaction or, in-memory, a coarse lock
// with an undo journal.
type PromotionTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores PromotionStores) error) error
}

// The in-memory stores put records back with Restore when a transaction aborts.
type (
	RestorableClaimStore interface {
		ClaimStore
		Restore(ctx context.Context, claim *models.ClaimRequest) error
	}
	RestorableTokenStore interface {
		TokenStore
		Restore(ctx context.Context, token *models.VerificationToken) error
	}
	RestorableCompanyStore interface {
		CompanyStore
		Restore(ctx context.Context, company *dirmodels.Company) error
	}
	RestorableUserStore interface {
		UserStore
		Restore(ctx context.Context, user *dirmodels.User) error
	}
)

// InMemoryTxStores are the in-memory stores behind InMemoryPromotionTx.
type InMemoryTxStores struct {
	Claims    RestorableClaimStore
	Tokens    RestorableTokenStore
	Companies RestorableCompanyStore
	Users     RestorableUserStore
}

// InMemoryPromotionTx serializes transactions with one mutex over the
// in-memory stores. Conditional writes made through the stores handed to fn
// are journaled and undone newest first when fn fails.
type InMemoryPromotionTx struct {
	mu     sync.Mutex
	stores InMemoryTxStores
}

func NewInMemoryPromotionTx(stores InMemoryTxStores) *InMemoryPromotionTx {
	return &InMemoryPromotionTx{stores: stores}
}

func (t *InMemoryPromotionTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores PromotionStores) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := &journal{}
	err := fn(ctx, PromotionStores{
		Claims:    journaledClaims{RestorableClaimStore: t.stores.Claims, j: j},
		Tokens:    journaledTokens{RestorableTokenStore: t.stores.Tokens, j: j},
		Companies: journaledCompanies{RestorableCompanyStore: t.stores.Companies, j: j},
		Users:     journaledUsers{RestorableUserStore: t.stores.Users, j: j},
	})
	if err == nil {
		return nil
	}
	if undoErr := j.rollback(context.WithoutCancel(ctx)); undoErr != nil {
		return errors.Join(err, fmt.Errorf("undo in-memory writes: %w", undoErr))
	}
	return err
}

type journal struct {
	undo []func(ctx context.Context) error
}

func (j *journal) record(undo func(ctx context.Context) error) {
	j.undo = append(j.undo, undo)
}

func (j *journal) rollback(ctx context.Context) error {
	var errs []error
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	j.undo = nil
	return errors.Join(errs...)
}

type journaledClaims struct {
	RestorableClaimStore
	j *journal
}

func (c journaledClaims) Execute(ctx context.Context, claimID id.ClaimRequestID, validate func(*models.ClaimRequest) error, mutate func(*models.ClaimRequest)) (*models.ClaimRequest, error) {
	before, err := c.RestorableClaimStore.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	updated, err := c.RestorableClaimStore.Execute(ctx, claimID, validate, mutate)
	if err != nil {
		return nil, err
	}
	c.j.record(func(ctx context.Context) error { return c.Restore(ctx, before) })
	return updated, nil
}

func (c journaledClaims) UpdateIfStatus(ctx context.Context, claimID id.ClaimRequestID, expected models.ClaimStatus, mutate func(*models.ClaimRequest) error) (*models.ClaimRequest, error) {
	before, err := c.RestorableClaimStore.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	updated, err := c.RestorableClaimStore.UpdateIfStatus(ctx, claimID, expected, mutate)
	if err != nil {
		return nil, err
	}
	c.j.record(func(ctx context.Context) error { return c.Restore(ctx, before) })
	return updated, nil
}

type journaledTokens struct {
	RestorableTokenStore
	j *journal
}

func (t journaledTokens) Consume(ctx context.Context, tokenHash string, now time.Time, check tokenstore.CheckFunc) (*models.VerificationToken, error) {
	before, err := t.RestorableTokenStore.FindByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	consumed, err := t.RestorableTokenStore.Consume(ctx, tokenHash, now, check)
	if err != nil {
		return nil, err
	}
	t.j.record(func(ctx context.Context) error { return t.Restore(ctx, before) })
	return consumed, nil
}

type journaledCompanies struct {
	RestorableCompanyStore
	j *journal
}

func (c journaledCompanies) MarkClaimed(ctx context.Context, companyID id.CompanyID, claimedByName string, now time.Time) error {
	before, err := c.RestorableCompanyStore.FindByID(ctx, companyID)
	if err != nil {
		return err
	}
	if err := c.RestorableCompanyStore.MarkClaimed(ctx, companyID, claimedByName, now); err != nil {
		return err
	}
	c.j.record(func(ctx context.Context) error { return c.Restore(ctx, before) })
	return nil
}

type journaledUsers struct {
	RestorableUserStore
	j *journal
}

func (u journaledUsers) PromoteToCompany(ctx context.Context, userID id.UserID, companyID id.CompanyID, now time.Time) error {
	before, err := u.RestorableUserStore.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.RestorableUserStore.PromoteToCompany(ctx, userID, companyID, now); err != nil {
		return err
	}
	u.j.record(func(ctx context.Context) error { return u.Restore(ctx, before) })
	return nil
}

// PostgresPromotionTx runs the workflow in one *sql.Tx carried by the context,
// which every PostgreSQL store joins through txcontext.ExecutorFrom.
type PostgresPromotionTx struct {
	db      *sql.DB
	stores  PromotionStores
	timeout time.Duration
}

func NewPostgresPromotionTx(db *sql.DB, stores PromotionStores) *PostgresPromotionTx {
	return &PostgresPromotionTx{db: db, stores: stores}
}

func (t *PostgresPromotionTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores PromotionStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPromotionTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return txcontext.Run(ctx, t.db, func(ctx context.Context) error {
		return fn(ctx, t.stores)
	})
}
