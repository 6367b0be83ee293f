package models

import "time"

type Contact struct {
	ID        RecordID    `gorm:"primaryKey;size:64" json:"id"`
	AccountId string      `gorm:"size:64;index" json:"-"`
	Name      string      `gorm:"size:255;not null" json:"name"`
	Phone     string      `gorm:"size:50" json:"phone,omitempty"`
	Type      ContactKind `gorm:"size:20;not null" json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DeletedAt *time.Time  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Contact) TableName() string { return "contacts" }
func (Contact) Kind() EntityKind  { return EntityContact }

func (c *Contact) GetID() RecordID                           { return c.ID }
func (c *Contact) SetID(id RecordID)                         { c.ID = id }
func (c *Contact) GetDeletedAt() *time.Time                  { return c.DeletedAt }
func (c *Contact) SetDeletedAt(at *time.Time)                { c.DeletedAt = at }
func (c *Contact) SetAccountId(account string)               { c.AccountId = account }
func (c *Contact) EachRef(func(column string, id *RecordID)) {}

type BankAccount struct {
	ID            RecordID   `gorm:"primaryKey;size:64" json:"id"`
	AccountId     string     `gorm:"size:64;index" json:"-"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	AccountNumber string     `gorm:"size:64" json:"account_number,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (BankAccount) TableName() string { return "bank_accounts" }
func (BankAccount) Kind() EntityKind  { return EntityBankAccount }

func (b *BankAccount) GetID() RecordID                           { return b.ID }
func (b *BankAccount) SetID(id RecordID)                         { b.ID = id }
func (b *BankAccount) GetDeletedAt() *time.Time                  { return b.DeletedAt }
func (b *BankAccount) SetDeletedAt(at *time.Time)                { b.DeletedAt = at }
func (b *BankAccount) SetAccountId(account string)               { b.AccountId = account }
func (b *BankAccount) EachRef(func(column string, id *RecordID)) {}

type Category struct {
	ID        RecordID     `gorm:"primaryKey;size:64" json:"id"`
	AccountId string       `gorm:"size:64;index" json:"-"`
	Name      string       `gorm:"size:100;not null;index" json:"name"`
	Type      CategoryKind `gorm:"size:20;not null" json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Category) TableName() string { return "categories" }
func (Category) Kind() EntityKind  { return EntityCategory }

func (c *Category) GetID() RecordID                           { return c.ID }
func (c *Category) SetID(id RecordID)                         { c.ID = id }
func (c *Category) SetAccountId(account string)               { c.AccountId = account }
func (c *Category) EachRef(func(column string, id *RecordID)) {}
