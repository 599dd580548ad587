package store

import (
	"time"
)

// Exception flag values
const (
	ExceptionYes = "Y"
	ExceptionNo  = "N"
)

// ReconciliationEntry is the per-reference flag row. Issuer and acquirer
// flags only move from 0 or NULL to 1, the exception flag only from N to Y.
type ReconciliationEntry struct {
	ID               uint       `gorm:"primary_key" json:"id"`
	CreatedAt        time.Time  `gorm:"column:date_time;not null" json:"date_time"`
	TransactionDate  string     `gorm:"column:tran_date;size:32" json:"tran_date"`
	Batch            string     `gorm:"column:batch;size:32" json:"batch"`
	Amount           string     `gorm:"column:amount;size:32" json:"amount"`
	Reference        string     `gorm:"column:trn_ref;size:64;not null;unique_index" json:"trn_ref"`
	IssuerCode       string     `gorm:"column:issuer_code;size:32;index" json:"issuer_code"`
	AcquirerCode     string     `gorm:"column:acquirer_code;size:32;index" json:"acquirer_code"`
	IssuerFlag       *int       `gorm:"column:iss_flg" json:"iss_flg"`
	IssuerFlagDate   *time.Time `gorm:"column:iss_flg_date" json:"iss_flg_date"`
	AcquirerFlag     *int       `gorm:"column:acq_flg" json:"acq_flg"`
	AcquirerFlagDate *time.Time `gorm:"column:acq_flg_date" json:"acq_flg_date"`
	ExceptionFlag    string     `gorm:"column:excep_flag;size:1;not null;default:'N'" json:"excep_flag"`
}

// TableName overrides the gorm table name.
func (ReconciliationEntry) TableName() string {
	return "recon"
}

// ReconLog is one appended row of run statistics.
type ReconLog struct {
	ID               uint      `gorm:"primary_key" json:"id"`
	RunID            string    `gorm:"column:run_id;size:36;index" json:"run_id"`
	CreatedAt        time.Time `gorm:"column:date_time;not null" json:"date_time"`
	BankID           string    `gorm:"column:bank_id;size:32;index" json:"bank_id"`
	UserID           string    `gorm:"column:user_id;size:100" json:"user_id"`
	DateRange        string    `gorm:"column:rq_date_range;size:64" json:"rq_date_range"`
	UploadedRows     int       `gorm:"column:upld_rws" json:"upld_rws"`
	RequestedRows    int       `gorm:"column:rq_rws" json:"rq_rws"`
	ReconciledRows   int       `gorm:"column:recon_rws" json:"recon_rws"`
	UnreconciledRows int       `gorm:"column:unrecon_rws" json:"unrecon_rws"`
	ExceptionRows    int       `gorm:"column:excep_rws" json:"excep_rws"`
	Feedback         string    `gorm:"column:feedback;type:text" json:"feedback"`
}

// TableName overrides the gorm table name.
func (ReconLog) TableName() string {
	return "recon_log"
}

// Transaction is one row of the internal switch ledger. The core never writes it.
type Transaction struct {
	ID             uint      `gorm:"primary_key" json:"id"`
	DateTime       time.Time `gorm:"column:date_time;index" json:"date_time"`
	TxnID          string    `gorm:"column:txn_id;size:64" json:"txn_id"`
	Batch          string    `gorm:"column:batch;size:32;index" json:"batch"`
	Reference      string    `gorm:"column:trn_ref;size:64;index" json:"trn_ref"`
	TxnType        string    `gorm:"column:txn_type;size:32" json:"txn_type"`
	ProcessingCode *string   `gorm:"column:processing_code;size:16" json:"processing_code"`
	RequestType    string    `gorm:"column:request_type;size:8" json:"request_type"`
	IssuerCode     string    `gorm:"column:issuer_code;size:32;index" json:"issuer_code"`
	AcquirerCode   string    `gorm:"column:acquirer_code;size:32;index" json:"acquirer_code"`
	Issuer         string    `gorm:"column:issuer;size:32" json:"issuer"`
	Acquirer       string    `gorm:"column:acquirer;size:32" json:"acquirer"`
	Amount         string    `gorm:"column:amount;size:32" json:"amount"`
	Fee            string    `gorm:"column:fee;size:32" json:"fee"`
	Commission     string    `gorm:"column:abc_commission;size:32" json:"abc_commission"`
	ResponseCode   *string   `gorm:"column:response_code;size:8" json:"response_code"`
}

// TableName overrides the gorm table name.
func (Transaction) TableName() string {
	return "transactions"
}
