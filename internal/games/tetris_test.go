package games

import "testing"

func TestTetrisGenesisDrawsTwoPieces(t *testing.T) {
	game := &TetrisGame{}
	st := game.Genesis(42).(TetrisState)

	if st.Active.ID < 0 || st.Active.ID > 6 {
		t.Errorf("active piece id out of range: %d", st.Active.ID)
	}
	if st.NextID < 0 || st.NextID > 6 {
		t.Errorf("next piece id out of range: %d", st.NextID)
	}
	if st.Level != 1 {
		t.Errorf("expected level 1, got %d", st.Level)
	}
}

func TestTetrisOPieceNeverRotates(t *testing.T) {
	game := &TetrisGame{}
	st := TetrisState{Active: spawnPiece(pieceO), NextID: 0, Level: 1, Rng: 5}

	next := game.Apply(st, TetrisRotateCW).(TetrisState)

	if len(next.Moves()) != 0 {
		t.Error("O-piece rotation was recorded as a move")
	}
	if next.Active.Rot != 0 {
		t.Errorf("O-piece rotated to %d", next.Active.Rot)
	}
}

func TestTetrisWallBlockIsNoOp(t *testing.T) {
	game := &TetrisGame{}
	st := TetrisState{Active: Piece{ID: pieceO, Col: 0}, NextID: 0, Level: 1, Rng: 5}

	next := game.Apply(st, TetrisLeft).(TetrisState)

	if next.Active.Col != 0 {
		t.Errorf("piece moved through the wall to col %d", next.Active.Col)
	}
	if len(next.Moves()) != 0 {
		t.Error("blocked shift was recorded as a move")
	}
}

func TestTetrisRotationRoundTrip(t *testing.T) {
	for id := 0; id < 7; id++ {
		if id == pieceO {
			continue
		}
		base := tetrominoes[id]
		shape := base
		for i := 0; i < 4; i++ {
			shape = rotateCW(shape)
		}
		for r := range base {
			for c := range base[r] {
				if shape[r][c] != base[r][c] {
					t.Errorf("piece %d: four clockwise rotations are not identity", id)
				}
			}
		}
	}
}

func TestTetrisHardDropLocksAndSpawns(t *testing.T) {
	game := &TetrisGame{}
	st := TetrisState{Active: spawnPiece(pieceO), NextID: 2, Level: 1, Rng: 31337}

	next := game.Apply(st, TetrisHardDrop).(TetrisState)

	// The O piece rests on the floor occupying the two bottom rows.
	filled := 0
	for c := 0; c < tetrisCols; c++ {
		if next.Board[tetrisRows-1][c] != 0 {
			filled++
		}
		if next.Board[tetrisRows-2][c] != 0 {
			filled++
		}
	}
	if filled != 4 {
		t.Errorf("expected 4 locked cells at the bottom, got %d", filled)
	}
	if next.Active.ID != 2 {
		t.Errorf("expected next piece to become active, got id %d", next.Active.ID)
	}
	if next.RNGState() == st.Rng {
		t.Error("locking must draw the following piece from the generator")
	}
	if len(next.Moves()) != 1 {
		t.Errorf("hard drop should be one recorded move, got %d", len(next.Moves()))
	}
}

func TestTetrisLineClearScoring(t *testing.T) {
	game := &TetrisGame{}

	// Bottom row full except the four columns the I piece will fill.
	var board [tetrisRows][tetrisCols]uint8
	for c := 0; c < tetrisCols; c++ {
		if c < 3 || c > 6 {
			board[tetrisRows-1][c] = 1
		}
	}

	st := TetrisState{Board: board, Active: spawnPiece(0), NextID: 1, Level: 1, Rng: 7}
	next := game.Apply(st, TetrisHardDrop).(TetrisState)

	if next.Lines != 1 {
		t.Fatalf("expected 1 cleared line, got %d", next.Lines)
	}
	if next.Points != lineScores[1] {
		t.Errorf("expected %d points for a single at level 1, got %d", lineScores[1], next.Points)
	}
	for c := 0; c < tetrisCols; c++ {
		if next.Board[tetrisRows-1][c] != 0 {
			t.Fatalf("bottom row not cleared: %v", next.Board[tetrisRows-1])
		}
	}
}

func TestTetrisSoftDropLocksWhenBlocked(t *testing.T) {
	game := &TetrisGame{}
	st := TetrisState{Active: Piece{ID: pieceO, Row: tetrisRows - 2, Col: 4}, NextID: 3, Level: 1, Rng: 11}

	next := game.Apply(st, TetrisSoftDrop).(TetrisState)

	if next.Board[tetrisRows-1][4] == 0 {
		t.Error("blocked soft drop should lock the piece")
	}
	if next.Active.ID != 3 {
		t.Errorf("expected spawn of next piece, got %d", next.Active.ID)
	}
}

func TestTetrisSpawnCollisionEndsGame(t *testing.T) {
	game := &TetrisGame{}

	// One garbage cell inside the I piece's spawn footprint (row 1,
	// cols 3-6). No row is complete, so the drop cannot clear it away,
	// and the active O piece falls past it at cols 4-5.
	var board [tetrisRows][tetrisCols]uint8
	board[1][3] = 1

	st := TetrisState{Board: board, Active: Piece{ID: pieceO, Row: 2, Col: 4}, NextID: 0, Level: 1, Rng: 3}
	next := game.Apply(st, TetrisHardDrop).(TetrisState)

	if next.Lines != 0 {
		t.Fatalf("drop must not clear lines, got %d", next.Lines)
	}
	if next.Board[tetrisRows-1][4] == 0 || next.Board[tetrisRows-1][5] == 0 {
		t.Fatal("active piece should lock at the bottom")
	}
	if !next.Over {
		t.Fatal("expected game over on blocked spawn")
	}
	if !game.Terminal(next) {
		t.Error("finished game should be terminal")
	}
	after := game.Apply(next, TetrisLeft).(TetrisState)
	if len(after.Moves()) != len(next.Moves()) {
		t.Error("move applied after game over")
	}
}
