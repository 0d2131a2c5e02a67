package chessadapter

import (
	"fmt"
	"strconv"
	"strings"
)

// splitFEN breaks a FEN string into its six space-separated fields.
func splitFEN(fen string) (board, turn, castling, enPassant string, halfmove, fullmove int, err error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return "", "", "", "", 0, 0, fmt.Errorf("malformed fen %q", fen)
	}
	halfmove, err = strconv.Atoi(fields[4])
	if err != nil {
		return "", "", "", "", 0, 0, fmt.Errorf("malformed halfmove clock in fen %q", fen)
	}
	fullmove, err = strconv.Atoi(fields[5])
	if err != nil {
		return "", "", "", "", 0, 0, fmt.Errorf("malformed fullmove number in fen %q", fen)
	}
	return fields[0], fields[1], fields[2], fields[3], halfmove, fullmove, nil
}

// parseBoard expands a FEN board field into 8 ranks (index 0 = rank 8, index
// 7 = rank 1) of 8 squares each (index 0 = file a); an entry of 0 is empty,
// otherwise it's the FEN piece glyph (uppercase = white).
func parseBoard(board string) ([8][8]byte, error) {
	var ranks [8][8]byte
	rows := strings.Split(board, "/")
	if len(rows) != 8 {
		return ranks, fmt.Errorf("malformed board field %q", board)
	}
	for ri, row := range rows {
		file := 0
		for _, c := range row {
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			if file >= 8 {
				return ranks, fmt.Errorf("malformed rank %q", row)
			}
			ranks[ri][file] = byte(c)
			file++
		}
		if file != 8 {
			return ranks, fmt.Errorf("malformed rank %q", row)
		}
	}
	return ranks, nil
}

// renderBoard is the inverse of parseBoard.
func renderBoard(ranks [8][8]byte) string {
	rows := make([]string, 8)
	for ri := 0; ri < 8; ri++ {
		var sb strings.Builder
		empty := 0
		for fi := 0; fi < 8; fi++ {
			if ranks[ri][fi] == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(ranks[ri][fi])
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		rows[ri] = sb.String()
	}
	return strings.Join(rows, "/")
}

// pieceGlyph maps a piece kind and color to its FEN letter.
func pieceGlyph(kind PieceKind, color Color) byte {
	c := strings.ToUpper(string(kind))[0]
	if color == Black {
		c = strings.ToLower(string(kind))[0]
	}
	return c
}
