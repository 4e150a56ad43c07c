package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const testIBAN = "DE89370400440532013000"

type walletFixture struct {
	users    *stubUserRepo
	ledger   *stubLedger
	settings *stubSettingsRepo
	payout   *stubPayout
	dedup    *stubDedup
	sink     *recordingSink
	svc      ports.WalletService
}

func newWalletFixture() *walletFixture {
	f := &walletFixture{
		users:    newStubUserRepo(),
		settings: newStubSettings(1000, "hook-key", "https://payouts.example/withdraw"),
		payout:   &stubPayout{result: &ports.PayoutResult{Accepted: true, StatusCode: 200}},
		dedup:    newStubDedup(),
		sink:     &recordingSink{},
	}
	f.ledger = newStubLedger(f.users)
	f.svc = NewWalletService(f.users, f.ledger, f.settings, f.payout, f.dedup, f.sink, zerolog.Nop())
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---- deposit ----

func TestDeposit_CreditsBalance(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 100)

	res, err := f.svc.Deposit(context.Background(), ports.DepositInput{
		Code: "FP-123456", Amount: "250.50", APIKey: "hook-key", Reference: "psp-1",
	})
	if err != nil {
		t.Fatalf("Deposit returned error: %v", err)
	}
	if !res.Balance.Equal(dec("350.50")) || res.Duplicate {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !f.users.balance(u.ID).Equal(dec("350.50")) {
		t.Fatalf("balance not credited: %s", f.users.balance(u.ID))
	}

	txs := f.ledger.all()
	if len(txs) != 1 || txs[0].Type != domain.TxDeposit || txs[0].Status != domain.TxCompleted || !txs[0].Amount.Equal(dec("250.50")) {
		t.Fatalf("expected one completed deposit, got %+v", txs)
	}
	if kinds := f.sink.kinds(); len(kinds) != 1 || kinds[0] != "deposit:completed" {
		t.Fatalf("unexpected audit events: %v", kinds)
	}
}

func TestDeposit_RejectsWrongAPIKey(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 100)

	for _, key := range []string{"", "wrong", "hook-key "} {
		_, err := f.svc.Deposit(context.Background(), ports.DepositInput{Code: "123456", Amount: "10", APIKey: key})
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("key %q: expected ErrUnauthorized, got %v", key, err)
		}
	}
	// Invalid payloads are still rejected as unauthorized first.
	_, err := f.svc.Deposit(context.Background(), ports.DepositInput{Code: "", Amount: "lots", APIKey: "nope"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if !f.users.balance(u.ID).Equal(dec("100")) || len(f.ledger.all()) != 0 {
		t.Fatalf("no mutation expected")
	}
}

func TestDeposit_DisabledWithoutConfiguredKey(t *testing.T) {
	f := newWalletFixture()
	f.settings.settings.APIKey = ""
	f.users.seed("mila", "123456", 0)

	_, err := f.svc.Deposit(context.Background(), ports.DepositInput{Code: "123456", Amount: "10", APIKey: ""})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDeposit_Validation(t *testing.T) {
	f := newWalletFixture()
	f.users.seed("mila", "123456", 0)

	cases := []ports.DepositInput{
		{Code: "123456", Amount: "0", APIKey: "hook-key"},
		{Code: "123456", Amount: "-5", APIKey: "hook-key"},
		{Code: "  ", Amount: "5", APIKey: "hook-key"},
		{Code: "123456", Amount: "lots", APIKey: "hook-key"},
		{Code: "123456", Amount: "", APIKey: "hook-key"},
		{Code: "123456", Amount: "1.005", APIKey: "hook-key"},
	}
	for _, in := range cases {
		if _, err := f.svc.Deposit(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
	if len(f.ledger.all()) != 0 {
		t.Fatalf("no transaction expected")
	}
}

func TestDeposit_UnknownCode(t *testing.T) {
	f := newWalletFixture()

	_, err := f.svc.Deposit(context.Background(), ports.DepositInput{Code: "999999", Amount: "5", APIKey: "hook-key"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeposit_DuplicateReference(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 0)
	in := ports.DepositInput{Code: "123456", Amount: "40", APIKey: "hook-key", Reference: "psp-7"}

	first, err := f.svc.Deposit(context.Background(), in)
	if err != nil {
		t.Fatalf("first Deposit returned error: %v", err)
	}
	second, err := f.svc.Deposit(context.Background(), in)
	if err != nil {
		t.Fatalf("second Deposit returned error: %v", err)
	}
	if !second.Duplicate || second.TransactionID != first.TransactionID {
		t.Fatalf("expected duplicate of tx %d, got %+v", first.TransactionID, second)
	}
	if !f.users.balance(u.ID).Equal(dec("40")) || len(f.ledger.all()) != 1 {
		t.Fatalf("duplicate must not credit twice")
	}
}

func TestDeposit_DedupUnavailableFallsBackToStore(t *testing.T) {
	f := newWalletFixture()
	f.dedup.claimErr = errBoom
	u := f.users.seed("mila", "123456", 0)
	in := ports.DepositInput{Code: "123456", Amount: "40", APIKey: "hook-key", Reference: "psp-8"}

	if _, err := f.svc.Deposit(context.Background(), in); err != nil {
		t.Fatalf("Deposit must proceed when dedup is down: %v", err)
	}
	res, err := f.svc.Deposit(context.Background(), in)
	if err != nil {
		t.Fatalf("second Deposit returned error: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("store must catch the repeated reference: %+v", res)
	}
	if !f.users.balance(u.ID).Equal(dec("40")) {
		t.Fatalf("unexpected balance: %s", f.users.balance(u.ID))
	}
}

func TestDeposit_ReleasesClaimOnFailure(t *testing.T) {
	f := newWalletFixture()
	f.users.seed("mila", "123456", 0)
	f.ledger.applyErr = errBoom

	_, err := f.svc.Deposit(context.Background(), ports.DepositInput{Code: "123456", Amount: "5", APIKey: "hook-key", Reference: "psp-9"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if len(f.dedup.released) != 1 || f.dedup.claimed["psp-9"] {
		t.Fatalf("claim must be released so the provider can retry: %+v", f.dedup)
	}
}

// ---- withdraw ----

func TestWithdraw_Accepted(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 500)

	res, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("200"), IBAN: "de89 3704 0044 0532 0130 00"})
	if err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if !res.Balance.Equal(dec("300")) || !f.users.balance(u.ID).Equal(dec("300")) {
		t.Fatalf("expected balance 300, got %s", res.Balance)
	}

	if len(f.payout.calls) != 1 {
		t.Fatalf("expected one payout call, got %d", len(f.payout.calls))
	}
	call := f.payout.calls[0]
	if call.IBAN != testIBAN || call.APIKey != "hook-key" || call.WithdrawID != res.WithdrawID || !call.Amount.Equal(dec("200")) {
		t.Fatalf("unexpected payout request: %+v", call)
	}
	if f.payout.endpoint != "https://payouts.example/withdraw" {
		t.Fatalf("unexpected endpoint: %s", f.payout.endpoint)
	}

	txs := f.ledger.all()
	if len(txs) != 1 || txs[0].Status != domain.TxCompleted || txs[0].ExternalID != res.WithdrawID {
		t.Fatalf("expected completed withdrawal, got %+v", txs)
	}
}

func TestWithdraw_UsesSavedIBAN(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 500)
	_ = f.users.UpdateIBAN(context.Background(), u.ID, testIBAN)

	if _, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("1")}); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if f.payout.calls[0].IBAN != testIBAN {
		t.Fatalf("expected saved iban, got %q", f.payout.calls[0].IBAN)
	}
}

func TestWithdraw_WithoutIBANReachesProvider(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 500)

	res, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("100")})
	if err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if len(f.payout.calls) != 1 || f.payout.calls[0].IBAN != "" {
		t.Fatalf("expected one payout call with an empty iban, got %+v", f.payout.calls)
	}
	if !res.Balance.Equal(dec("400")) || !f.users.balance(u.ID).Equal(dec("400")) {
		t.Fatalf("expected balance 400, got %s", res.Balance)
	}
	if txs := f.ledger.all(); len(txs) != 1 || txs[0].Status != domain.TxCompleted {
		t.Fatalf("expected completed withdrawal, got %+v", txs)
	}
}

func TestWithdraw_Rejected(t *testing.T) {
	f := newWalletFixture()
	f.payout.result = &ports.PayoutResult{Accepted: false, StatusCode: 422, Reason: "account closed"}
	u := f.users.seed("mila", "123456", 500)

	_, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("200"), IBAN: testIBAN})
	if !errors.Is(err, domain.ErrPayoutRejected) {
		t.Fatalf("expected ErrPayoutRejected, got %v", err)
	}
	if !f.users.balance(u.ID).Equal(dec("500")) {
		t.Fatalf("balance must be untouched, got %s", f.users.balance(u.ID))
	}
	txs := f.ledger.all()
	if len(txs) != 1 || txs[0].Status != domain.TxFailed || txs[0].FailureReason != "account closed" {
		t.Fatalf("expected failed withdrawal, got %+v", txs)
	}
	if kinds := f.sink.kinds(); len(kinds) != 1 || kinds[0] != "withdraw:failed" {
		t.Fatalf("unexpected audit events: %v", kinds)
	}
}

func TestWithdraw_Unreachable(t *testing.T) {
	f := newWalletFixture()
	f.payout.err = errBoom
	u := f.users.seed("mila", "123456", 500)

	_, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("200"), IBAN: testIBAN})
	if !errors.Is(err, domain.ErrPayoutUnavailable) {
		t.Fatalf("expected ErrPayoutUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrPayoutRejected) {
		t.Fatalf("unreachable must be distinguishable from rejected")
	}
	if !f.users.balance(u.ID).Equal(dec("500")) {
		t.Fatalf("balance must be untouched")
	}
	if txs := f.ledger.all(); len(txs) != 1 || txs[0].Status != domain.TxFailed {
		t.Fatalf("expected failed withdrawal, got %+v", txs)
	}
}

func TestWithdraw_Validation(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 100)

	cases := []ports.WithdrawInput{
		{UserID: u.ID, Amount: dec("0"), IBAN: testIBAN},
		{UserID: u.ID, Amount: dec("100.01"), IBAN: testIBAN},
		{UserID: u.ID, Amount: dec("0.001"), IBAN: testIBAN},
		{UserID: u.ID, Amount: dec("10"), IBAN: "DE00370400440532013000"},
	}
	for _, in := range cases {
		if _, err := f.svc.Withdraw(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
	if len(f.ledger.all()) != 0 || len(f.payout.calls) != 0 {
		t.Fatalf("invalid requests must not create transactions or call out")
	}

	if _, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: 99, Amount: dec("1"), IBAN: testIBAN}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestWithdraw_BalanceSpentDuringPayout(t *testing.T) {
	f := newWalletFixture()
	u := f.users.seed("mila", "123456", 300)
	f.payout.onSend = func() {
		if _, err := f.users.adjust(u.ID, domain.TxEntryFee, dec("250")); err != nil {
			t.Errorf("concurrent spend: %v", err)
		}
	}

	_, err := f.svc.Withdraw(context.Background(), ports.WithdrawInput{UserID: u.ID, Amount: dec("200"), IBAN: testIBAN})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !f.users.balance(u.ID).Equal(dec("50")) {
		t.Fatalf("balance must never go negative, got %s", f.users.balance(u.ID))
	}
	txs := f.ledger.all()
	if len(txs) != 1 || txs[0].Status != domain.TxFailed || txs[0].FailureReason != reasonInsufficientFunds {
		t.Fatalf("expected failed withdrawal for reconciliation, got %+v", txs)
	}
}
