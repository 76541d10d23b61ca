package stor

import "gorm.io/gorm"

const txRetryCount = 3

// WithTxRetry runs fn inside a transaction, retrying a few times on
// failure to ride out transient deadlocks.
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
