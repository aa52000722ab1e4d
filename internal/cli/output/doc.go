// Package output renders arsnap-cli results as tables, JSON or YAML, and
// draws the spinner and progress bar used by long-running commands.
//
// Tables are built by reflection: a slice of structs becomes one row per
// element with headers taken from the json tags, a single struct becomes a
// FIELD/VALUE listing. Fields tagged `table:"-"` are hidden and fields tagged
// `table:"wide"` only show with -o wide. Short numeric arrays such as pose
// positions and quaternions are printed inline.
package output
