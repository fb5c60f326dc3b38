// Package schema validates node and connector configurations against their field
// declarations.
//
// A Schema is compiled from []domain.Field. Apply copies the configuration, fills in
// defaults, normalises loosely typed values (numeric strings, JSON strings) and reports
// every failure at once:
//
//	s, err := schema.Compile(node.Fields)
//	if err != nil {
//	    return err
//	}
//	cfg, err := s.Apply(raw)
//	if err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // Handle each field error
//	    }
//	}
package schema
