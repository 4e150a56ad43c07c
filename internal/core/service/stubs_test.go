package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// ---- users ----

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[uint]*domain.User
	roles     map[uint]domain.Role
	nextID    uint
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uint]*domain.User), roles: make(map[uint]domain.Role)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) seed(username, code string, balance int64) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u := &domain.User{ID: r.nextID, Username: username, FPCode: code, Balance: decimal.NewFromInt(balance)}
	r.users[u.ID] = u
	return cloneUser(u)
}

func (r *stubUserRepo) balance(id uint) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Balance
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrUserExists
		}
		if u.FPCode == user.FPCode {
			return domain.ErrDepositCodeTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) FindByFPCode(_ context.Context, code string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.FPCode == code })
}

func (r *stubUserRepo) UpdateIBAN(_ context.Context, userID uint, iban string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IBAN = iban
	return nil
}

func (r *stubUserRepo) AddRole(_ context.Context, userID, roleID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	role, ok := r.roles[roleID]
	if !ok {
		return domain.ErrRoleNotFound
	}
	for _, have := range u.Roles {
		if have.ID == roleID {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (r *stubUserRepo) RemoveRole(_ context.Context, userID, roleID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	kept := u.Roles[:0]
	for _, have := range u.Roles {
		if have.ID != roleID {
			kept = append(kept, have)
		}
	}
	u.Roles = kept
	return nil
}

// adjust applies a balance delta under the repo lock, refusing to go negative.
func (r *stubUserRepo) adjust(userID uint, typ domain.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if typ.IsCredit() {
		u.Balance = u.Balance.Add(amount)
	} else {
		if u.Balance.LessThan(amount) {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		u.Balance = u.Balance.Sub(amount)
	}
	return u.Balance, nil
}

// ---- roles ----

type stubRoleRepo struct {
	users  *stubUserRepo
	nextID uint
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	for _, have := range r.users.roles {
		if have.Name == role.Name {
			return domain.ErrRoleExists
		}
	}
	r.nextID++
	role.ID = r.nextID
	r.users.roles[role.ID] = *role
	return nil
}

func (r *stubRoleRepo) FindByID(_ context.Context, id uint) (*domain.Role, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	role, ok := r.users.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return &role, nil
}

func (r *stubRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	out := make([]domain.Role, 0, len(r.users.roles))
	for _, role := range r.users.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRoleRepo) Delete(_ context.Context, id uint) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	if _, ok := r.users.roles[id]; !ok {
		return domain.ErrRoleNotFound
	}
	delete(r.users.roles, id)
	return nil
}

// ---- ledger ----

type stubLedger struct {
	users       *stubUserRepo
	mu          sync.Mutex
	txs         []domain.Transaction
	applyErr    error
	completeErr error
}

func newStubLedger(users *stubUserRepo) *stubLedger {
	return &stubLedger{users: users}
}

func (l *stubLedger) insert(entry domain.LedgerEntry) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ExternalID != "" {
		for _, tx := range l.txs {
			if tx.ExternalID == entry.ExternalID {
				return domain.Transaction{}, domain.ErrDuplicateReference
			}
		}
	}
	status := entry.Status
	if status == "" {
		status = domain.TxCompleted
	}
	tx := domain.Transaction{
		ID:         uint(len(l.txs) + 1),
		UserID:     entry.UserID,
		Type:       entry.Type,
		Amount:     entry.Amount,
		Status:     status,
		ExternalID: entry.ExternalID,
		CreatedAt:  time.Now(),
	}
	l.txs = append(l.txs, tx)
	return tx, nil
}

func (l *stubLedger) Apply(_ context.Context, entry domain.LedgerEntry) (*ports.LedgerResult, error) {
	if l.applyErr != nil {
		return nil, l.applyErr
	}
	if err := domain.RequirePositive("amount", entry.Amount); err != nil {
		return nil, err
	}
	l.mu.Lock()
	for _, tx := range l.txs {
		if entry.ExternalID != "" && tx.ExternalID == entry.ExternalID {
			l.mu.Unlock()
			return nil, domain.ErrDuplicateReference
		}
	}
	l.mu.Unlock()

	bal, err := l.users.adjust(entry.UserID, entry.Type, entry.Amount)
	if err != nil {
		return nil, err
	}
	tx, err := l.insert(entry)
	if err != nil {
		return nil, err
	}
	return &ports.LedgerResult{Transaction: tx, Balance: bal}, nil
}

func (l *stubLedger) CreatePending(_ context.Context, entry domain.LedgerEntry) (*domain.Transaction, error) {
	entry.Status = domain.TxPending
	tx, err := l.insert(entry)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (l *stubLedger) byID(id uint) *domain.Transaction {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return &l.txs[i]
		}
	}
	return nil
}

func (l *stubLedger) CompleteWithdrawal(_ context.Context, txID uint) (*ports.LedgerResult, error) {
	if l.completeErr != nil {
		return nil, l.completeErr
	}
	l.mu.Lock()
	tx := l.byID(txID)
	if tx == nil {
		l.mu.Unlock()
		return nil, domain.ErrTransactionNotFound
	}
	if tx.Status != domain.TxPending {
		l.mu.Unlock()
		return nil, domain.ErrTransactionSettled
	}
	userID, amount := tx.UserID, tx.Amount
	l.mu.Unlock()

	bal, err := l.users.adjust(userID, domain.TxWithdraw, amount)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	tx = l.byID(txID)
	tx.Status = domain.TxCompleted
	return &ports.LedgerResult{Transaction: *tx, Balance: bal}, nil
}

func (l *stubLedger) MarkFailed(_ context.Context, txID uint, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := l.byID(txID)
	if tx == nil {
		return domain.ErrTransactionNotFound
	}
	if tx.Status != domain.TxPending {
		return domain.ErrTransactionSettled
	}
	tx.Status = domain.TxFailed
	tx.FailureReason = reason
	return nil
}

func (l *stubLedger) FindByExternalID(_ context.Context, externalID string) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.txs {
		if tx.ExternalID == externalID {
			found := tx
			return &found, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (l *stubLedger) ListByUser(_ context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Transaction
	for i := len(l.txs) - 1; i >= 0; i-- {
		if l.txs[i].UserID == userID {
			out = append(out, l.txs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *stubLedger) all() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Transaction(nil), l.txs...)
}

// ---- settings ----

type stubSettingsRepo struct {
	settings domain.Settings
	getErr   error
}

func newStubSettings(fee int64, apiKey, withdrawURL string) *stubSettingsRepo {
	s := domain.DefaultSettings()
	s.EntryFee = decimal.NewFromInt(fee)
	s.APIKey = apiKey
	s.WithdrawURL = withdrawURL
	return &stubSettingsRepo{settings: s}
}

func (r *stubSettingsRepo) Get(_ context.Context) (*domain.Settings, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	s := r.settings
	return &s, nil
}

func (r *stubSettingsRepo) Update(_ context.Context, patch domain.SettingsPatch) (*domain.Settings, error) {
	r.settings = patch.Apply(r.settings)
	s := r.settings
	return &s, nil
}

// ---- entries and votes ----

type stubEntryRepo struct {
	users     *stubUserRepo
	ledger    *stubLedger
	mu        sync.Mutex
	entries   map[uint]*domain.Entry
	votes     []domain.Vote
	nextID    uint
	createErr error
}

func newStubEntryRepo(users *stubUserRepo, ledger *stubLedger) *stubEntryRepo {
	return &stubEntryRepo{users: users, ledger: ledger, entries: make(map[uint]*domain.Entry)}
}

func (r *stubEntryRepo) CreateWithFee(ctx context.Context, entry *domain.Entry) (*ports.LedgerResult, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	var res *ports.LedgerResult
	if entry.FeePaid.IsPositive() {
		var err error
		res, err = r.ledger.Apply(ctx, domain.LedgerEntry{UserID: entry.UserID, Type: domain.TxEntryFee, Amount: entry.FeePaid})
		if err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	clone := *entry
	r.entries[entry.ID] = &clone
	return res, nil
}

func (r *stubEntryRepo) DeleteWithRefund(ctx context.Context, entryID, ownerID uint) (*domain.Entry, *ports.LedgerResult, error) {
	r.mu.Lock()
	e, ok := r.entries[entryID]
	if !ok {
		r.mu.Unlock()
		return nil, nil, domain.ErrEntryNotFound
	}
	if e.UserID != ownerID {
		r.mu.Unlock()
		return nil, nil, domain.ErrUnauthorized
	}
	delete(r.entries, entryID)
	kept := r.votes[:0]
	for _, v := range r.votes {
		if v.EntryID != entryID {
			kept = append(kept, v)
		}
	}
	r.votes = kept
	r.mu.Unlock()

	var res *ports.LedgerResult
	if e.FeePaid.IsPositive() {
		var err error
		res, err = r.ledger.Apply(ctx, domain.LedgerEntry{UserID: ownerID, Type: domain.TxRefund, Amount: e.FeePaid})
		if err != nil {
			return nil, nil, err
		}
	}
	return e, res, nil
}

func (r *stubEntryRepo) FindByID(_ context.Context, id uint) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEntryRepo) ListByWeek(_ context.Context, week int) ([]domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Entry{}
	for _, e := range r.entries {
		if e.WeekNumber == week {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *stubEntryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type stubVoteRepo struct {
	entries *stubEntryRepo
}

func (r *stubVoteRepo) Create(_ context.Context, vote *domain.Vote) error {
	r.entries.mu.Lock()
	defer r.entries.mu.Unlock()
	for _, v := range r.entries.votes {
		if v.VoterID == vote.VoterID && v.WeekNumber == vote.WeekNumber {
			return domain.ErrAlreadyVoted
		}
	}
	vote.ID = uint(len(r.entries.votes) + 1)
	r.entries.votes = append(r.entries.votes, *vote)
	return nil
}

// ---- editions ----

type stubEditionRepo struct {
	editions map[string]*domain.Edition
}

func newStubEditionRepo() *stubEditionRepo {
	return &stubEditionRepo{editions: make(map[string]*domain.Edition)}
}

func (r *stubEditionRepo) Save(_ context.Context, e *domain.Edition) error {
	clone := *e
	r.editions[e.ID] = &clone
	return nil
}

func (r *stubEditionRepo) FindByID(_ context.Context, id string) (*domain.Edition, error) {
	e, ok := r.editions[id]
	if !ok {
		return nil, domain.ErrEditionNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEditionRepo) List(_ context.Context) ([]domain.Edition, error) {
	out := make([]domain.Edition, 0, len(r.editions))
	for _, e := range r.editions {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EditionNumber > out[j].EditionNumber })
	return out, nil
}

func (r *stubEditionRepo) FindPublished(_ context.Context) (*domain.Edition, error) {
	for _, e := range r.editions {
		if e.Status == domain.EditionPublished {
			clone := *e
			return &clone, nil
		}
	}
	return nil, domain.ErrNoPublishedEdition
}

func (r *stubEditionRepo) Publish(_ context.Context, id string, at time.Time) (*domain.Edition, error) {
	target, ok := r.editions[id]
	if !ok {
		return nil, domain.ErrEditionNotFound
	}
	for _, e := range r.editions {
		e.Status = domain.EditionDraft
		e.PublishedAt = nil
	}
	target.Status = domain.EditionPublished
	target.PublishedAt = &at
	clone := *target
	return &clone, nil
}

func (r *stubEditionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.editions[id]; !ok {
		return domain.ErrEditionNotFound
	}
	delete(r.editions, id)
	return nil
}

func (r *stubEditionRepo) MaxEditionNumber(_ context.Context) (int, error) {
	n := 0
	for _, e := range r.editions {
		if e.EditionNumber > n {
			n = e.EditionNumber
		}
	}
	return n, nil
}

// ---- gateways ----

type stubPayout struct {
	result   *ports.PayoutResult
	err      error
	calls    []ports.PayoutRequest
	endpoint string
	// onSend runs before the result is returned.
	onSend func()
}

func (p *stubPayout) Send(_ context.Context, endpoint string, req ports.PayoutRequest) (*ports.PayoutResult, error) {
	p.calls = append(p.calls, req)
	p.endpoint = endpoint
	if p.onSend != nil {
		p.onSend()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type stubImageStore struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newStubImageStore() *stubImageStore {
	return &stubImageStore{saved: make(map[string][]byte)}
}

func (s *stubImageStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	url := "/uploads/" + filename
	s.saved[url] = buf.Bytes()
	return url, nil
}

func (s *stubImageStore) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	delete(s.saved, url)
	return nil
}

type stubDedup struct {
	claimed  map[string]bool
	claimErr error
	released []string
}

func newStubDedup() *stubDedup {
	return &stubDedup{claimed: make(map[string]bool)}
}

func (d *stubDedup) Claim(_ context.Context, ref string) (bool, error) {
	if d.claimErr != nil {
		return false, d.claimErr
	}
	if d.claimed[ref] {
		return false, nil
	}
	d.claimed[ref] = true
	return true, nil
}

func (d *stubDedup) Release(_ context.Context, ref string) error {
	d.released = append(d.released, ref)
	delete(d.claimed, ref)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []ports.AuditEvent
}

func (s *recordingSink) Publish(event ports.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind+":"+e.Status)
	}
	return out
}

var errBoom = errors.New("boom")
