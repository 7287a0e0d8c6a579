// Package tape implements the tapescript compiler front-end and interpreter.
// Programs are written with eight single-character operations over a byte
// tape:
//   - `<` and `>` move the tape pointer.
//   - `+` and `-` add to and subtract from the current cell, wrapping mod 256.
//   - `.` writes the current cell to the output stream.
//   - `,` reads from the input stream into the tape.
//   - `[` and `]` delimit a loop that runs while the current cell is non-zero.
//
// Every other character is ignored. Encode folds runs of identical
// operations into counted instructions and resolves bracket pairs into jump
// targets, rejecting unmatched brackets. A Machine then executes the
// resulting Program against a fixed-size tape, failing fast when the pointer
// leaves the tape.
package tape
