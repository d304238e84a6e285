package service

import "fmt"

// Key namespaces of the store. Index copies hold the same document as
// the primary key and are rewritten in the same transaction.
const (
	batchPrefix          = "batch:"
	userBatchesPrefix    = "user_batches:"
	transferPrefix       = "transfer:"
	userPrefix           = "user:"
	usernamePrefix       = "username:"
	expensePrefix        = "expense:"
	farmerExpensesPrefix = "farmer_expenses:"
	cropExpensesPrefix   = "crop_expenses:"
)

func batchKey(id string) string          { return batchPrefix + id }
func userBatchesKey(owner string) string { return userBatchesPrefix + owner + ":" }
func transferKey(id string) string       { return transferPrefix + id }
func userKey(id string) string           { return userPrefix + id }
func usernameKey(lower string) string    { return usernamePrefix + lower }
func expenseKey(id string) string        { return expensePrefix + id }
func farmerExpensesKey(id string) string { return farmerExpensesPrefix + id + ":" }
func cropExpensesKey(crop string) string { return cropExpensesPrefix + crop + ":" }

const (
	auditPrefix  = "audit:"
	backupPrefix = "backup:"
)

// auditKey sorts by time: the timestamp is zero-padded unix nanoseconds.
func auditKey(ts int64, id string) string { return fmt.Sprintf("%s%020d:%s", auditPrefix, ts, id) }
func backupKey(id string) string          { return backupPrefix + id }

// domainPrefixes are the namespaces captured by a backup.
var domainPrefixes = []string{
	batchPrefix, userBatchesPrefix, transferPrefix, userPrefix, usernamePrefix,
	expensePrefix, farmerExpensesPrefix, cropExpensesPrefix,
}
