package internal

import (
	"fmt"
	"strings"

	"epaybg/entity"
)

// instructionsTemplate is the buyer-facing how-to-pay text for offline
// payments. Token replacement only; formatting and delivery are the
// notifier's business.
const instructionsTemplate = `To pay your order ({order_id}) with EasyPay or B-Pay you can use the steps below.

Payment via EasyPay
1. Go to an EasyPay office (http://easypay.bg/?p=offices)
2. Say your IDN code "{idn_code}" to the office agent
3. You will be asked to pay {order_total}

Payment via ATM and B-Pay
1. Find an ATM that supports B-Pay payments (https://www.epay.bg/en/?page=front_wiki&p=b-pay_atm)
2. Put your card in the ATM
3. Select "Other services"
4. Select "B-Pay"
5. Enter merchant code "60000"
6. Enter your IDN code "{idn_code}"
7. You will be asked to pay {order_total}

Your IDN code is valid until {expire_date}; after that the payment will be refused.`

// Instructions renders the offline payment instructions for an order that
// already carries an issued EasyPay code.
func Instructions(order *entity.Order) string {
	var idn, expire string
	if order.EasyPay != nil {
		idn = order.EasyPay.Idn
		expire = order.EasyPay.Expire
	}
	replacer := strings.NewReplacer(
		"{order_id}", fmt.Sprintf("%d", order.Id),
		"{idn_code}", idn,
		"{expire_date}", expire,
		"{order_total}", fmt.Sprintf("%s %s", FormatAmount(order.Total), order.Currency),
	)
	return replacer.Replace(instructionsTemplate)
}
