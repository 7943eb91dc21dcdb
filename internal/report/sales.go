package report

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateSalesReport(ctx context.Context, data Data) (io.Reader, error) {
	m := p.build(data)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func (p *PDFProvider) build(data Data) core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, data.Title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(8,
		text.NewCol(5, "Nome", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Telefone", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Números", props.Text{Style: fontstyle.Bold, Size: 9}),
	)

	gray := props.Color{Red: 235, Green: 235, Blue: 235}
	for i, buyer := range data.Buyers {
		row := m.AddRow(7,
			text.NewCol(5, buyer.Name, props.Text{Size: 8}),
			text.NewCol(3, buyer.Phone, props.Text{Size: 8}),
			text.NewCol(4, buyer.Numbers, props.Text{Size: 8}),
		)
		if i%2 == 1 {
			row.WithStyle(&props.Cell{BackgroundColor: &gray})
		}
	}

	return m
}
