package assignment

import (
	"net/mail"
	texttmpl "text/template"

	"github.com/kyleyee20/aevum/core"
)

var digestTmpl = texttmpl.Must(texttmpl.New("digest").Parse(`Your priorities as of {{.Date}}:
{{range .Items}}
- {{.Title}}{{if not .Title}}(untitled){{end}}
  due {{.DueDate}}, start by {{.Recommended}}, priority {{printf "%.2f" .PriorityScore}}, weight {{.Strength}}
{{else}}
Nothing left to do.
{{end}}`))

type digestData struct {
	Date  string
	Items []View
}

// digest builds the scoring digest sent to recipients, nil when there is no one to send it to.
func digest(to string, views []View) (*core.EmailMessage, error) {
	if to == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, err
	}
	rcpts := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		rcpts = append(rcpts, *a)
	}
	Sort(views, ByRecommended)
	return &core.EmailMessage{
		To:           rcpts,
		Subject:      "Your assignment priorities",
		TextTemplate: digestTmpl,
		TemplateData: digestData{Date: core.FormatDate(core.Today()), Items: views},
	}, nil
}

func (svc *Service) sendDigest() {
	if svc.mailer == nil || svc.digestTo == "" {
		return
	}
	msg, err := digest(svc.digestTo, svc.ListActive())
	if err != nil {
		svc.log.Warn("invalid digest recipients", "to", svc.digestTo, "error", err)
		return
	}
	svc.mailer.SendMessages(msg)
}
