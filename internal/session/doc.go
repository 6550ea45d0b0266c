// Package session binds the columns of a single table to variables in a
// caller scope and keeps the two in sync.
//
// A Session owns one active table stored in a tabular engine. Each column is
// exposed in the session's Scope as a Column value under the column's name.
// After every public operation returns, the set of bound names equals the
// set of column names.
//
// Operations that reshape the table or its rows unbind every column, swap in
// the new table and bind every column of the result. Operations that touch
// one column (Generate, Replace, Rename, dropping one column) unbind and
// bind only that name. When any step fails, the previous table and bindings
// are restored and the error is returned:
//
//	s, err := session.New(ctx, session.Config{})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.ReadCSV(ctx, "tips.csv"); err != nil {
//		return err
//	}
//	tip, _ := s.Lookup("tip")
//	err = s.Generate(ctx, "double_tip", expr.Mul(expr.MustLit(2), tip.Expr()))
//
// Names are validated before they are bound; see Validate.
package session
