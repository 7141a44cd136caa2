package stor

import (
	"gorm.io/gorm"
)

const minTxRetry = 3

var txRetryCount = minTxRetry

// SetTxRetry sets the number of attempts WithTxRetry makes. Values below 3 are raised to 3.
func SetTxRetry(count int) {
	if count < minTxRetry {
		count = minTxRetry
	}

	txRetryCount = count
}

func WithTxRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error

	for i := 0; i < txRetryCount; i++ {
		err = db.Transaction(fn)
		if err == nil {
			break
		}
	}

	return err
}
