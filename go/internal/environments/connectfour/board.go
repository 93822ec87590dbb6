package connectfour

import "errors"

const (
	Rows    = 6
	Columns = 7
	// connectLength is the run length required to win.
	connectLength = 4
)

var (
	ErrBadColumn  = errors.New("column out of range")
	ErrColumnFull = errors.New("column is full")
)

// Piece is the content of one board cell.
type Piece uint8

const (
	PieceNone Piece = iota
	PieceOne
	PieceTwo
)

// Board is the 6x7 grid. Row 0 is the top; pieces stack from the bottom.
type Board [Rows][Columns]Piece

// Drop places a piece in the given column and returns the row it landed in.
func (b *Board) Drop(col int, p Piece) (int, error) {
	if col < 0 || col >= Columns {
		return 0, ErrBadColumn
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == PieceNone {
			b[row][col] = p
			return row, nil
		}
	}
	return 0, ErrColumnFull
}

// LegalMask returns the per-column legality vector: 1 where the column still
// has room, 0 where it is full.
func (b *Board) LegalMask() []uint8 {
	mask := make([]uint8, Columns)
	for col := 0; col < Columns; col++ {
		if b[0][col] == PieceNone {
			mask[col] = 1
		}
	}
	return mask
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool {
	for col := 0; col < Columns; col++ {
		if b[0][col] == PieceNone {
			return false
		}
	}
	return true
}

// Winner returns the piece with a connected run of four, if any.
func (b *Board) Winner() (Piece, bool) {
	directions := [4][2]int{
		{0, 1},  // horizontal
		{1, 0},  // vertical
		{1, 1},  // diagonal down-right
		{1, -1}, // diagonal down-left
	}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			p := b[row][col]
			if p == PieceNone {
				continue
			}
			for _, d := range directions {
				if b.runFrom(row, col, d[0], d[1], p) {
					return p, true
				}
			}
		}
	}
	return PieceNone, false
}

func (b *Board) runFrom(row, col, dr, dc int, p Piece) bool {
	for i := 1; i < connectLength; i++ {
		r, c := row+dr*i, col+dc*i
		if r < 0 || r >= Rows || c < 0 || c >= Columns {
			return false
		}
		if b[r][c] != p {
			return false
		}
	}
	return true
}
