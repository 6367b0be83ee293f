package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountGuardPlugin scopes queries/updates/deletes on the remote store to the request's account_id
// when the model has an account_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include account_id manually.
// - Inserts are not touched; callers set AccountId on the row.
type AccountGuardPlugin struct{}

func NewAccountGuardPlugin() *AccountGuardPlugin { return &AccountGuardPlugin{} }

func (p *AccountGuardPlugin) Name() string { return "account_guard" }

func (p *AccountGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("account_guard:query", accountGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("account_guard:row", accountGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("account_guard:update", accountGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("account_guard:delete", accountGuardCallback); err != nil {
		return err
	}
	return nil
}

func accountGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	accountID := accountIdFromContext(ctx)
	if accountID == "" {
		return
	}
	if db.Statement.Schema == nil {
		return
	}
	hasAccountID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "account_id") {
			hasAccountID = true
			break
		}
	}
	if !hasAccountID {
		return
	}

	// Don't duplicate an explicit account filter.
	if whereHasAccountID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "account_id"},
				Value:  accountID,
			},
		},
	})
}

func accountIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyAccountId).(string); ok && v != "" {
		return v
	}
	return ""
}

func whereHasAccountID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasAccountID(e) {
			return true
		}
	}
	return false
}

func exprHasAccountID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsAccountID(v.Column)
	case clause.IN:
		return colIsAccountID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasAccountID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "account_id")
	default:
		return false
	}
}

func colIsAccountID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "account_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "account_id")
	default:
		return false
	}
}
