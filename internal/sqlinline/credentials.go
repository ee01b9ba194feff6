package sqlinline

const QSelectCredential = `--sql 4c2b7e19-6d0a-4f83-b5e2-1a9c3d7f8e60
select token
from integration_tokens
where provider = $1::text and token <> ''
limit 1;
`

// QUpsertCredential merges the incoming properties into the stored ones so
// earlier keys survive a rotation.
const QUpsertCredential = `--sql e07d5a3c-92b1-4e6f-8c4d-5b1f2a6e9d38
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

const QListCredentials = `--sql 1f6a9d42-3b7e-4c58-a0d1-7e2c5b8f4a93
select provider, coalesce(properties->>'kind', ''), char_length(token), updated_at
from integration_tokens
where provider = any($1::text[])
order by provider;
`
