package devlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apdulab/apdulab/pkg/logstore"
)

func TestClassify(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x02}

	tests := []struct {
		name     string
		ev       Event
		wantKind logstore.Kind
		wantText string
	}{
		{
			name:     "apdu",
			ev:       Event{Type: TypeAPDU, Message: "=> e0d2000000"},
			wantKind: logstore.KindAPDU,
			wantText: "=> e0d2000000",
		},
		{
			name:     "frame in",
			ev:       Event{Type: TypeFrameIn, Message: "<= 000102", Data: frame},
			wantKind: logstore.KindBinary,
			wantText: "<= 000102",
		},
		{
			name:     "frame out",
			ev:       Event{Type: TypeFrameOut, Message: "=> 000102", Data: frame},
			wantKind: logstore.KindBinary,
			wantText: "=> 000102",
		},
		{
			name:     "device error",
			ev:       Event{Type: TypeError, Message: "status 6985"},
			wantKind: logstore.KindError,
			wantText: "status 6985",
		},
		{
			name:     "device verbose",
			ev:       Event{Type: TypeVerbose, Message: "seq 3"},
			wantKind: logstore.KindVerbose,
			wantText: "seq 3",
		},
		{
			name:     "unmapped promoted to verbose",
			ev:       Event{Type: "bootloader", Message: "entering"},
			wantKind: logstore.KindVerbose,
			wantText: "device: bootloader: entering",
		},
		{
			name:     "unmapped without message",
			ev:       Event{Type: "bootloader"},
			wantKind: logstore.KindVerbose,
			wantText: "device: bootloader",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.ev)
			assert.Equal(t, tt.wantKind, rec.Kind)
			assert.Equal(t, tt.wantText, rec.Text)
			if tt.ev.Data != nil {
				assert.Equal(t, tt.ev.Data, rec.Attachment)
			}
		})
	}
}
