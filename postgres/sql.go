// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

// This file contains extremely generic support code for PostgreSQL
// applications: withTx() to do work in a transaction that can be
// retried, and scanRows() to loop over the results of a multi-row
// SELECT.

import (
	"database/sql"

	"github.com/lib/pq"
)

// withTx calls some function with a database/sql transaction object.
// If f panics or returns a non-nil error, rolls the transaction back;
// otherwise commits it before returning.  Returns the error value from
// f, or some other error related to transaction management.
func (s *Store) withTx(readOnly bool, f func(*sql.Tx) error) (err error) {
	var (
		tx   *sql.Tx
		done bool
	)

	// If we have a failure, roll back; and if that rollback fails
	// and we don't yet have an error, set the error (how do we
	// get there?)
	defer func() {
		if tx != nil && !done {
			err2 := tx.Rollback()
			if err == nil {
				err = err2
			}
		}
	}()

	// Run in a loop, repeating the work on serialization errors
	for {
		tx, err = s.db.Begin()
		if err != nil {
			return
		}

		level := "REPEATABLE READ"
		if readOnly {
			level += " READ ONLY"
		}
		_, err = tx.Exec("SET TRANSACTION ISOLATION LEVEL " + level)
		if err != nil {
			return
		}

		err = f(tx)

		// If that succeeded, commit
		if err == nil {
			err = tx.Commit()
			done = true
		}

		// If we specifically got a serialization error,
		// retry
		if pqerr, ok := err.(*pq.Error); ok {
			if pqerr.Code == "40001" {
				err = tx.Rollback()
				if err == sql.ErrTxDone {
					// We want to roll back, but we
					// can't, because we've already
					// rolled back; not an error
					err = nil
				} else if err != nil {
					return
				}
				tx = nil
				continue
			}
		}

		break
	}

	return
}

// scanRows runs an SQL query and calls a function for each row in the
// result.  The callback function should only call the Scan() method on
// the provided Rows object; this function will take care of advancing
// through the list of rows and closing the iterator as required.
func scanRows(rows *sql.Rows, f func() error) (err error) {
	var done bool
	defer func() {
		if !done {
			err2 := rows.Close()
			if err == nil {
				err = err2
			}
		}
	}()

	for rows.Next() {
		err = f()
		if err != nil {
			return
		}
	}
	done = true
	err = rows.Err()
	return
}
