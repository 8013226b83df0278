// Package codec implements the per-game byte encodings move logs pass
// through on their way to and from the ledger. Decoding is deliberately
// lenient: the first out-of-range leading byte ends the stream and a
// trailing partial record is dropped, so payloads can grow forward-
// compatibly without breaking old readers.
package codec

import (
	"github.com/chainarcade/replay-go/internal/games"
)

// Codec turns a move list into bytes and back for one game.
type Codec interface {
	// Encode serializes moves. Moves of a foreign type are skipped.
	Encode(moves []games.Move) []byte

	// Decode parses bytes into moves, stopping at the first byte that is
	// not a valid record start. Decode never fails; malformed tails
	// simply truncate the result.
	Decode(data []byte) []games.Move
}

var registry = make(map[string]Codec)

// Register binds a codec to a game id.
func Register(gameID string, c Codec) {
	registry[gameID] = c
}

// For retrieves the codec for a game id.
func For(gameID string) (Codec, bool) {
	c, ok := registry[gameID]
	return c, ok
}

func init() {
	Register("merge2048", directionCodec{})
	Register("snake", directionCodec{})
	Register("tetris", tetrisCodec{})
	Register("memory", memoryCodec{})
	Register("puzzle", puzzleCodec{})
}

// directionCodec is the shared single-byte encoding for the two
// four-direction games: 0=up 1=down 2=left 3=right.
type directionCodec struct{}

func (directionCodec) Encode(moves []games.Move) []byte {
	out := make([]byte, 0, len(moves))
	for _, m := range moves {
		if d, ok := m.(games.Direction); ok {
			out = append(out, byte(d))
		}
	}
	return out
}

func (directionCodec) Decode(data []byte) []games.Move {
	out := make([]games.Move, 0, len(data))
	for _, b := range data {
		if b > byte(games.Right) {
			break
		}
		out = append(out, games.Direction(b))
	}
	return out
}

// tetrisCodec encodes one action per byte: 0=left 1=right 2=cw 3=ccw
// 4=soft 5=hard.
type tetrisCodec struct{}

func (tetrisCodec) Encode(moves []games.Move) []byte {
	out := make([]byte, 0, len(moves))
	for _, m := range moves {
		if a, ok := m.(games.TetrisAction); ok {
			out = append(out, byte(a))
		}
	}
	return out
}

func (tetrisCodec) Decode(data []byte) []games.Move {
	out := make([]games.Move, 0, len(data))
	for _, b := range data {
		if b > byte(games.TetrisHardDrop) {
			break
		}
		out = append(out, games.TetrisAction(b))
	}
	return out
}

// memoryCodec writes two bytes per move: the card index (or the unflip
// sentinel, one past the last card) and a reserved byte held at zero
// for future payload growth.
type memoryCodec struct{}

const (
	memoryCardCount    = 16
	memoryUnflipOpcode = memoryCardCount
	memoryRecordLen    = 2
	puzzleRecordLen    = 5
	puzzleCoordCeiling = 64 // rows/cols beyond this are not a valid record
)

func (memoryCodec) Encode(moves []games.Move) []byte {
	out := make([]byte, 0, len(moves)*memoryRecordLen)
	for _, m := range moves {
		mv, ok := m.(games.MemoryMove)
		if !ok {
			continue
		}
		op := byte(mv.Card)
		if mv.Unflip {
			op = memoryUnflipOpcode
		}
		out = append(out, op, 0)
	}
	return out
}

func (memoryCodec) Decode(data []byte) []games.Move {
	out := make([]games.Move, 0, len(data)/memoryRecordLen)
	for i := 0; i+memoryRecordLen <= len(data); i += memoryRecordLen {
		op := data[i]
		if op > memoryUnflipOpcode {
			break
		}
		if op == memoryUnflipOpcode {
			out = append(out, games.MemoryMove{Unflip: true})
		} else {
			out = append(out, games.MemoryMove{Card: int(op)})
		}
	}
	return out
}

// puzzleCodec writes five bytes per move: piece id, from row/col, to
// row/col.
type puzzleCodec struct{}

func (puzzleCodec) Encode(moves []games.Move) []byte {
	out := make([]byte, 0, len(moves)*puzzleRecordLen)
	for _, m := range moves {
		mv, ok := m.(games.PuzzleMove)
		if !ok {
			continue
		}
		out = append(out,
			byte(mv.Piece),
			byte(mv.FromRow), byte(mv.FromCol),
			byte(mv.ToRow), byte(mv.ToCol),
		)
	}
	return out
}

func (puzzleCodec) Decode(data []byte) []games.Move {
	out := make([]games.Move, 0, len(data)/puzzleRecordLen)
	for i := 0; i+puzzleRecordLen <= len(data); i += puzzleRecordLen {
		rec := data[i : i+puzzleRecordLen]
		if rec[0] >= puzzleCoordCeiling || rec[1] >= puzzleCoordCeiling ||
			rec[2] >= puzzleCoordCeiling || rec[3] >= puzzleCoordCeiling ||
			rec[4] >= puzzleCoordCeiling {
			break
		}
		out = append(out, games.PuzzleMove{
			Piece:   int(rec[0]),
			FromRow: int(rec[1]),
			FromCol: int(rec[2]),
			ToRow:   int(rec[3]),
			ToCol:   int(rec[4]),
		})
	}
	return out
}
