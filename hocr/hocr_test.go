package hocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title>Scanned Doc</title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 5.3.0'/>
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "page1.png"; bbox 0 0 640 480; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 36 92 618 122">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 36 92 618 122">
     <span class='ocr_line' id='line_1_1' title="bbox 36 92 618 122; baseline 0 -5; x_size 30">
      <span class='ocrx_word' id='word_1_1' title='bbox 36 92 96 122; x_wconf 91'>The</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 109 92 266 122; x_wconf 87'>quick</span>
     </span>
     <span class='ocr_line' id='line_1_2' title="bbox 36 131 618 161; baseline 0 -5">
      <span class='ocrx_word' id='word_1_3' title='bbox 36 131 130 161; x_wconf 96'>brown</span>
     </span>
    </p>
   </div>
  </div>
  <div class='ocr_page' id='page_2' title='image "page2.png"; bbox 0 0 640 480; ppageno 1'>
   <span class='ocr_line' id='line_2_1' title="bbox 10 10 100 40">
    <span class='ocrx_word' id='word_2_1' title='bbox 10 10 100 40; x_wconf 72'>fox</span>
   </span>
  </div>
 </body>
</html>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Scanned Doc", doc.Title)
	assert.Equal(t, "tesseract 5.3.0", doc.System)
	require.Len(t, doc.Pages, 2)

	p1 := doc.Pages[0]
	assert.Equal(t, "page_1", p1.ID)
	assert.Equal(t, 0, p1.Number)
	assert.Equal(t, "page1.png", p1.Image)
	assert.Equal(t, BBox{0, 0, 640, 480}, p1.BBox)
	require.Len(t, p1.Lines, 2)

	l1 := p1.Lines[0]
	assert.Equal(t, BBox{36, 92, 618, 122}, l1.BBox)
	require.Len(t, l1.Words, 2)
	assert.Equal(t, "The", l1.Words[0].Text)
	assert.Equal(t, 91.0, l1.Words[0].Conf)
	assert.Equal(t, BBox{36, 92, 96, 122}, l1.Words[0].BBox)
	assert.Equal(t, "The quick", l1.Text())
	assert.Equal(t, "The quick\nbrown", p1.Text())

	p2 := doc.Pages[1]
	assert.Equal(t, 1, p2.Number)
	require.Len(t, p2.Lines, 1)
	assert.Equal(t, "fox", p2.Text())
}

func TestParseLatin1Charset(t *testing.T) {
	raw := "<html><head>" +
		`<meta http-equiv="Content-Type" content="text/html;charset=ISO-8859-1"/>` +
		"</head><body>" +
		`<div class='ocr_page' id='page_1' title='bbox 0 0 100 100'>` +
		`<span class='ocr_line' title='bbox 0 0 100 20'>` +
		"<span class='ocrx_word' title='bbox 0 0 50 20; x_wconf 80'>caf\xe9</span>" +
		"</span></div></body></html>"

	doc, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Lines, 1)
	assert.Equal(t, "café", doc.Pages[0].Lines[0].Words[0].Text)
}

func TestParseNoPages(t *testing.T) {
	_, err := Parse([]byte("<html><body><p>plain html</p></body></html>"))
	require.ErrorIs(t, err, ErrNoPages)
}

func TestDeclaredCharset(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`<meta content="text/html;charset=utf-8"/>`, "utf-8"},
		{`<meta content="text/html;charset=ISO-8859-1"/>`, "iso-8859-1"},
		{`<meta content='text/html;charset=iso-8859-1'/>`, "iso-8859-1"},
		{`<html><body>no meta</body></html>`, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, declaredCharset([]byte(tc.in)), "input %q", tc.in)
	}
}

func TestBBox(t *testing.T) {
	b := BBox{10, 20, 110, 70}
	assert.Equal(t, 100, b.Width())
	assert.Equal(t, 50, b.Height())
}
