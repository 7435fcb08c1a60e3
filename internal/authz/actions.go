package authz

// Action codes are the atomic unit of authorization. Every protected
// operation in the console maps to exactly one code.
const (
	ActionStaffList    = "staff.list"
	ActionStaffCreate  = "staff.create"
	ActionStaffUpdate  = "staff.update"
	ActionStaffArchive = "staff.archive"
	ActionStaffRevoke  = "staff.revoke"

	ActionSubscriberList   = "subscriber.list"
	ActionSubscriberUpdate = "subscriber.update"

	ActionBillingView   = "billing.view"
	ActionBillingAdjust = "billing.adjust"

	ActionInventoryList   = "inventory.list"
	ActionInventoryUpdate = "inventory.update"

	ActionImportRun = "prg.import.run"

	ActionAuditRead   = "audit.read"
	ActionMetricsRead = "ops.metrics.read"
)

// defaultRoleSets maps each role to its permitted action codes. The admin
// role is not listed: it short-circuits every check in the resolver.
// Permission sets are loaded once and immutable for the life of the process;
// changing them means redeploying.
var defaultRoleSets = map[string][]string{
	"staff": {
		ActionStaffList,
		ActionSubscriberList,
		ActionSubscriberUpdate,
		ActionBillingView,
		ActionInventoryList,
		ActionInventoryUpdate,
		ActionImportRun,
	},
	"sales": {
		ActionSubscriberList,
		ActionSubscriberUpdate,
		ActionBillingView,
	},
	"unassigned": {},
}
