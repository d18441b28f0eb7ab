package filter

// Shuffle groups byte j of every element together, so all low bytes come
// first, then all second bytes and so on. Numeric tiles with slowly varying
// values compress much better afterwards. Trailing bytes that do not form a
// whole element are copied unchanged.
type Shuffle struct{}

func (Shuffle) Type() Type { return TypeShuffle }

func (Shuffle) Forward(in []byte, elemSize int) ([]byte, []byte, error) {
	return shuffle(in, elemSize, false), nil, nil
}

func (Shuffle) Reverse(in, _ []byte, elemSize int) ([]byte, error) {
	return shuffle(in, elemSize, true), nil
}

func (Shuffle) Params() []byte { return nil }

func shuffle(in []byte, elemSize int, reverse bool) []byte {
	numElems := 0
	if elemSize > 1 {
		numElems = len(in) / elemSize
	}
	if numElems == 0 {
		return in
	}

	out := make([]byte, len(in))
	for i := 0; i < numElems; i++ {
		for j := 0; j < elemSize; j++ {
			// byte j of element i lives at j*numElems+i once shuffled
			if reverse {
				out[i*elemSize+j] = in[j*numElems+i]
			} else {
				out[j*numElems+i] = in[i*elemSize+j]
			}
		}
	}
	tail := numElems * elemSize
	copy(out[tail:], in[tail:])
	return out
}
