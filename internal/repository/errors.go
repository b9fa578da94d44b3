package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCustomer = errors.New("customer with this name and expiry date already exists")
)

const mysqlErrDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
