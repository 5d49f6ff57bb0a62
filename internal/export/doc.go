// Package export writes the stored tree as a Gramps CSV import file.
//
// The file has three sections separated by a blank line:
//
//	person,grampsid,firstname,lastname,gender,note,birthdate,...
//	marriage,husband,wife,date,place,source
//	family,child
//
// Every person yields one person row and one family row, the latter with an
// empty family column when the parents are unknown. Every stored family
// yields one marriage row. People are identified by their permalink and
// families by their composite id, so the file can be re-imported on top of a
// previous import without creating duplicates.
package export
