// Package importer turns bank statement files into transaction drafts.
package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// maxDescription mirrors the transaction description limit.
const maxDescription = 200

// Line is one statement entry as read from the file. Amount keeps the bank's
// sign: negative for debits.
type Line struct {
	FITID     string
	AccountID string
	Type      string
	Posted    core.Date
	Amount    decimal.Decimal
	Name      string
	Memo      string
}

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// normalize repairs the formatting slips banks commonly ship in SGML OFX.
func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// ParseOFX reads bank and credit card statements from an OFX or QFX file.
func ParseOFX(r io.Reader) ([]Line, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parse OFX file: %w", err)
	}

	var lines []Line
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, tx := range stmt.BankTranList.Transactions {
			lines = append(lines, convert(tx, string(stmt.BankAcctFrom.AcctID)))
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, tx := range stmt.BankTranList.Transactions {
			lines = append(lines, convert(tx, string(stmt.CCAcctFrom.AcctID)))
		}
	}
	return lines, nil
}

func convert(tx ofxgo.Transaction, accountID string) Line {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(4))
	if err != nil {
		amount = decimal.Zero
	}
	name := string(tx.Name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	}
	return Line{
		FITID:     string(tx.FiTID),
		AccountID: accountID,
		Type:      fmt.Sprint(tx.TrnType),
		Posted:    core.DateOf(tx.DtPosted.Time),
		Amount:    amount,
		Name:      strings.TrimSpace(name),
		Memo:      strings.TrimSpace(string(tx.Memo)),
	}
}

// Options controls how lines become transactions. Empty category ids fall
// back to the owner's first default category of the matching kind.
type Options struct {
	OwnerID           string
	ExpenseCategoryID string
	IncomeCategoryID  string
}

// Skipped records a line that could not become a transaction.
type Skipped struct {
	FITID string
	Err   error
}

// Result holds the drafts ready to be added plus the rejected lines.
type Result struct {
	Transactions []core.Transaction
	Skipped      []Skipped
}

var errNoCategory = errors.New("no category available for kind")

// ToTransactions maps lines to validated drafts. Negative amounts become
// expenses and positive ones income; zero amounts are skipped. The FITID is
// kept at the end of the description.
func ToTransactions(lines []Line, cats []core.Category, opts Options) Result {
	var res Result
	for _, l := range lines {
		kind := core.KindIncome
		if l.Amount.IsNegative() {
			kind = core.KindExpense
		}
		categoryID, err := pickCategory(cats, kind, opts)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{FITID: l.FITID, Err: err})
			continue
		}

		t := core.Transaction{
			Amount:      core.MoneyFromDecimal(l.Amount.Abs()),
			Kind:        kind,
			Description: describe(l),
			OccurredOn:  l.Posted,
			CategoryID:  categoryID,
			OwnerID:     opts.OwnerID,
		}
		if err := t.Validate(); err != nil {
			res.Skipped = append(res.Skipped, Skipped{FITID: l.FITID, Err: err})
			continue
		}
		res.Transactions = append(res.Transactions, t)
	}
	return res
}

func pickCategory(cats []core.Category, kind core.Kind, opts Options) (string, error) {
	id := opts.ExpenseCategoryID
	if kind == core.KindIncome {
		id = opts.IncomeCategoryID
	}
	if id != "" {
		return id, nil
	}
	var fallback string
	for _, c := range core.CategoriesForKind(cats, kind) {
		if c.IsDefault {
			return c.ID, nil
		}
		if fallback == "" {
			fallback = c.ID
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("%w %s", errNoCategory, kind)
	}
	return fallback, nil
}

// describe builds "<name> [<fitid>]", shortening the name to fit.
func describe(l Line) string {
	name := l.Name
	if name == "" {
		name = l.Memo
	}
	if name == "" {
		name = "OFX " + strings.ToLower(l.Type)
	}
	suffix := ""
	if l.FITID != "" {
		suffix = " [" + l.FITID + "]"
	}
	budget := maxDescription - len([]rune(suffix))
	if r := []rune(name); len(r) > budget {
		name = strings.TrimSpace(string(r[:max(budget, 0)]))
	}
	return name + suffix
}
