package cart

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	items := []LineItem{
		physical("galileo", 499, 2, "3.5x"),
		addon("prescription-lenses", "price_rx"),
		{ProductSlug: "headlight", Name: "Headlight", Price: 299, Quantity: 1},
	}
	blob, err := Encode(items)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	res, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(items, res.Items); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if res.Version != BlobVersion || res.Dropped != 0 {
		t.Fatalf("unexpected result meta %+v", res)
	}
}

func TestEncodeWritesNullsForUnsetOptionals(t *testing.T) {
	blob, err := Encode([]LineItem{{ProductSlug: "headlight", Name: "Headlight", Price: 299, Quantity: 1}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"version":1,"items":[{"productSlug":"headlight","name":"Headlight","shortName":null,"price":299,"quantity":1,"image":null,"selectedMagnification":null,"selectedFrameId":null,"selectedFrameName":null,"selectedFrameImage":null,"isAddon":false,"stripePriceId":null,"stripeProductId":null}]}`
	if string(blob) != want {
		t.Fatalf("unexpected encoding:\n%s", blob)
	}
}

func TestEncodeNilIsEmptyList(t *testing.T) {
	blob, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(blob) != `{"version":1,"items":[]}` {
		t.Fatalf("unexpected encoding %s", blob)
	}
}

func TestDecodeLegacyArray(t *testing.T) {
	res, err := Decode([]byte(`[{"productSlug":"galileo","name":"Galileo","price":499,"quantity":1}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Version != 0 || len(res.Items) != 1 || res.Items[0].ProductSlug != "galileo" {
		t.Fatalf("unexpected legacy decode %+v", res)
	}
}

func TestDecodeCorruptInputs(t *testing.T) {
	cases := map[string]struct {
		data string
		want error
	}{
		"not json":        {data: "not json at all", want: ErrUnreadable},
		"truncated":       {data: `{"version":1,"items":[`, want: ErrUnreadable},
		"scalar":          {data: `42`, want: ErrUnreadable},
		"null":            {data: `null`, want: ErrUnreadable},
		"wrong shape":     {data: `{"version":1,"items":{"a":1}}`, want: ErrUnreadable},
		"future version":  {data: `{"version":7,"items":[]}`, want: ErrUnsupportedVersion},
		"missing version": {data: `{"items":[]}`, want: ErrUnsupportedVersion},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := Decode([]byte(tc.data))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if res.Items == nil || len(res.Items) != 0 {
				t.Fatalf("expected empty non-nil items, got %#v", res.Items)
			}
		})
	}
}

func TestDecodeEmptyIsEmptyCart(t *testing.T) {
	for _, data := range []string{"", "   "} {
		res, err := Decode([]byte(data))
		if err != nil || len(res.Items) != 0 {
			t.Fatalf("expected empty cart for %q, got %+v %v", data, res, err)
		}
	}
}

func TestDecodeDropsMalformedEntries(t *testing.T) {
	data := `{"version":1,"items":[
		{"productSlug":"galileo","name":"Galileo","price":499,"quantity":1},
		{"productSlug":"","name":"blank","price":1,"quantity":1},
		{"productSlug":"kepler","name":"Kepler","price":899,"quantity":0},
		{"productSlug":"flip","name":"Flip","price":-5,"quantity":1},
		{"productSlug":"headlight","name":"Headlight","price":"299","quantity":1},
		"garbage",
		{"productSlug":"headlight","name":"Headlight","price":299,"quantity":3}
	]}`
	res, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Dropped != 5 {
		t.Fatalf("expected 5 dropped entries, got %d", res.Dropped)
	}
	got := []string{res.Items[0].ProductSlug, res.Items[1].ProductSlug}
	if diff := cmp.Diff([]string{"galileo", "headlight"}, got); diff != "" {
		t.Fatalf("unexpected kept entries:\n%s", diff)
	}
}
