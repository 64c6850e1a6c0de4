package container

import "testing"

func TestSizeFormula(t *testing.T) {
	const frameSize = 113400
	got := Size(frameSize, 3)
	want := HeaderSize + 3*(frameSize+FramePadding)
	if got != want {
		t.Fatalf("Size = %d, want %d", got, want)
	}
}

// TestContainerSize checks that len(EncodeAnimation) matches the
// 0x1000 + N*(113400+1288) formula.
func TestContainerSize(t *testing.T) {
	const frameSize = 113400
	frames := make([][]byte, 4)
	for i := range frames {
		frames[i] = make([]byte, frameSize)
	}
	data, err := EncodeAnimation(frames)
	if err != nil {
		t.Fatal(err)
	}
	want := Size(frameSize, len(frames))
	if len(data) != want {
		t.Fatalf("len(data) = %d, want %d", len(data), want)
	}
}

func TestEncodeAnimationRejectsEmpty(t *testing.T) {
	if _, err := EncodeAnimation(nil); err == nil {
		t.Fatal("expected error for empty frame list")
	}
}

// TestStillHeaderMagic checks the still-container magic prefix.
func TestStillHeaderMagic(t *testing.T) {
	frame := make([]byte, 113400)
	data := EncodeStill(frame)
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x18}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("header byte %d = %#02x, want %#02x", i, data[i], b)
		}
	}
	if len(data) != HeaderSize+len(frame)+FramePadding {
		t.Fatalf("len(data) = %d, want %d", len(data), HeaderSize+len(frame)+FramePadding)
	}
}

func TestAnimationHeaderMagic(t *testing.T) {
	frame := make([]byte, 113400)
	data, err := EncodeAnimation([][]byte{frame})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x3C, 0x18}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("header byte %d = %#02x, want %#02x", i, data[i], b)
		}
	}
}
