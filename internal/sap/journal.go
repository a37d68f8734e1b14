package sap

import "time"

// Constants shared by the two S/4HANA journal-entry variants.
const (
	journalEntryPath          = "/API_JOURNALENTRY_POST/JournalEntryPost"
	documentTypeVendorInvoice = "KR"
	taxGLAccount              = "191000"
	defaultTaxCode            = "V1"
)

type journalHeader struct {
	CompanyCode    string `json:"companyCode"`
	DocumentDate   string `json:"documentDate"`
	PostingDate    string `json:"postingDate"`
	DocumentType   string `json:"documentType"`
	Reference      string `json:"reference"`
	HeaderText     string `json:"headerText"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type journalItem struct {
	Type        string  `json:"type"`
	GLAccount   string  `json:"glAccount,omitempty"`
	Vendor      string  `json:"vendor,omitempty"`
	Amount      float64 `json:"amount"`
	DebitCredit string  `json:"debitCredit"`
	CostCenter  string  `json:"costCenter,omitempty"`
	TaxCode     string  `json:"taxCode,omitempty"`
}

type journalEntryBody struct {
	Header journalHeader `json:"header"`
	Items  []journalItem `json:"items"`
}

// buildJournalEntry maps the normalized payload onto the three-line journal
// entry both S/4HANA variants post: a GL debit for the net amount, a tax
// debit on the input-tax account, and a vendor credit for the gross.
func buildJournalEntry(companyCode string, payload Payload, now time.Time) journalEntryBody {
	return journalEntryBody{
		Header: journalHeader{
			CompanyCode:    companyCode,
			DocumentDate:   payload.ExpenseDate.Format("2006-01-02"),
			PostingDate:    now.Format("2006-01-02"),
			DocumentType:   documentTypeVendorInvoice,
			Reference:      payload.Reference,
			HeaderText:     "Employee " + payload.Category + " Expense",
			Currency:       payload.Currency,
			IdempotencyKey: idempotencyKey(payload),
		},
		Items: []journalItem{
			{
				Type:        "GL",
				GLAccount:   glAccountFor(payload.Category),
				Amount:      payload.Amount.Sub(payload.TaxAmount).InexactFloat64(),
				DebitCredit: "D",
				CostCenter:  deref(payload.CostCenter),
				TaxCode:     defaultTaxCode,
			},
			{
				Type:        "TAX",
				GLAccount:   taxGLAccount,
				Amount:      payload.TaxAmount.InexactFloat64(),
				DebitCredit: "D",
				TaxCode:     defaultTaxCode,
			},
			{
				Type:        "VENDOR",
				Vendor:      deref(payload.Employee.SapEmployeeID),
				Amount:      payload.Amount.InexactFloat64(),
				DebitCredit: "C",
			},
		},
	}
}
