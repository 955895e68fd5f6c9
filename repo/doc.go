// Package repo is the repository layer of relmap.
//
// A Client turns entity operations into literal SQL and runs it through an
// Executor, usually a *sql.TxExecutor:
//
//	client := repo.NewClient(sql.NewTxExecutor(drv), repo.WithLogger(logger))
//	orders := repo.For[Order](client)
//
//	saved, err := orders.Save(ctx, &Order{ID: ptr(7)})
//	if err != nil {
//	    return err
//	}
//	if err := orders.Populate(ctx, saved); err != nil {
//	    return err
//	}
//
// Save checks for an existing row by id and then inserts or updates;
// it always re-reads the stored row. FindByID reports a missing row as
// *relmap.NotFoundError and duplicate ids as *relmap.NotSingularError.
//
// Failed statements degrade: lists come back empty and single lookups as
// not found, with the failure logged. WithStrictErrors returns them as
// *relmap.QueryError or *relmap.MutationError instead. Configuration errors
// are always returned.
//
// Relation fields are loaded on request with Populate and its per-field
// variants, each costing one query per field (plus one per row for
// many_to_many). WithEagerRelations populates the direct relations of
// everything a find returns. Populated entities are not themselves
// populated, so cyclic graphs terminate.
package repo
