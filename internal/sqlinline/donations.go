package sqlinline

const QInsertDonationIntent = `--sql 9b79c57c-3615-48a2-9d85-3426d5b3f7eb
insert into donation_intents(id, method, tier_index, amount, display_amount, locale, status, created_at, updated_at)
values ($1::uuid, $2::text, $3::int, $4::numeric, $5::text, $6::text, 'pending', coalesce($7::timestamptz, now()), now());
`

const QListDonationIntents = `--sql 7a08e4f6-cb8a-42c4-bd7f-291d6e913edc
select id::text, method, tier_index, amount::float8, display_amount, locale, status, created_at
from donation_intents
order by created_at desc
limit $1::int;
`

const QMarkDonationIntentReceived = `--sql 3e1f4b8a-52c7-4d0e-9a61-8f2b7c0d9e14
update donation_intents
set status = 'received', updated_at = now()
where id = $1::uuid and status = 'pending';
`
