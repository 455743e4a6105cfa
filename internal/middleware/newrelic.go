package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicActor annotates the New Relic transaction started by nrgin with
// the acting user. Must run after Auth. A request without a transaction is
// left alone.
func NewRelicActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}
		if actor, ok := ActorFrom(c); ok {
			txn.AddAttribute("actor.id", actor.ID)
			txn.AddAttribute("actor.role", string(actor.Role))
			if actor.CompanyID != "" {
				txn.AddAttribute("actor.company_id", actor.CompanyID)
			}
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
