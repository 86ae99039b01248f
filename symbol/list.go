package symbol

import "strings"

type List []Symbol

// Letters renders the list as a string of B/P letters.
func (l List) Letters() string {
	var sb strings.Builder
	sb.Grow(len(l))
	for _, s := range l {
		sb.WriteByte(s.Letter())
	}
	return sb.String()
}

// Count 获取庄/闲数量
func (l List) Count() (banker, player int) {
	for _, s := range l {
		switch s {
		case Banker:
			banker++
		case Player:
			player++
		}
	}
	return banker, player
}

// ParseList reads a compact letter string such as "BPBPP".
func ParseList(raw string) (List, error) {
	raw = strings.TrimSpace(raw)
	out := make(List, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		s, err := FromLetter(raw[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
