// Package retry makes unreliable node calls safe to repeat and to fan out.
//
// Two independent mechanisms are provided.
//
// [Transaction] calls a function up to a fixed number of times with a fixed
// pause in between. The default policy is three attempts ten seconds apart:
//
//	fee, err := retry.Transaction(ctx, retry.Default(), func(ctx context.Context) (int64, error) {
//	    return client.UnitFee(ctx, "ARBITRARY")
//	}, true)
//
// [Queue] limits how many tasks run at once. Waiting tasks are admitted in
// arrival order and a task that fails still gives its slot back:
//
//	lookups := retry.NewQueue("at-lookup", retry.ATLookupCapacity)
//	trade, err := retry.Enqueue(ctx, lookups, fetchTrade)
//
// The two compose: a queued task may itself be retried.
package retry
