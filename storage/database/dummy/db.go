package dummydb

import (
	"sync"

	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/fee"
	"github.com/tmalela/elimisha/core/student"
)

type (
	DB struct {
		account   *accountTable
		student   *studentTable
		structure *structureTable
		payment   *paymentTable
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Credential
	}

	structureTable struct {
		sync.RWMutex
		table map[string]*fee.Structure
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*fee.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		account:   &accountTable{table: make(map[string]*account.Account)},
		student:   &studentTable{table: make(map[string]*student.Credential)},
		structure: &structureTable{table: make(map[string]*fee.Structure)},
		payment:   &paymentTable{table: make(map[string]*fee.Payment)},
	}
	return db, nil
}
